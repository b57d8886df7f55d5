package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type clientFunc func() *apiClient

func appAddCmd(client clientFunc) *cobra.Command {
	var patientID, name, date, start, end, comment string
	cmd := &cobra.Command{
		Use:   "appadd",
		Short: "Book an appointment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPost, "/appointments", nil, map[string]string{
				"patient_id":   patientID,
				"patient_name": name,
				"date":         date,
				"start":        start,
				"end":          end,
				"comment":      comment,
			})
		},
	}
	cmd.Flags().StringVar(&patientID, "patient-id", "", "patient identifier (NRIC)")
	cmd.Flags().StringVar(&name, "name", "", "patient name")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "start time, HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "end time, HH:MM")
	cmd.Flags().StringVar(&comment, "comment", "", "free text")
	for _, f := range []string{"patient-id", "date", "start", "end"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func appDelCmd(client clientFunc) *cobra.Command {
	var date, start string
	cmd := &cobra.Command{
		Use:   "appdel",
		Short: "Cancel the appointment starting at date and time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/appointments/" + url.PathEscape(date) + "/" + url.PathEscape(start)
			return client().call(http.MethodDelete, path, nil, nil)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "start time, HH:MM")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func listAppCmd(client clientFunc) *cobra.Command {
	var from, to, patientID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "listapp",
		Short: "List appointments in a date range or for a patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			switch {
			case patientID != "":
				q.Set("patient_id", patientID)
			case from != "":
				q.Set("from", from)
				if to != "" {
					q.Set("to", to)
				}
			default:
				return fmt.Errorf("either --from or --patient-id is required")
			}
			if !asJSON {
				q.Set("format", "text")
			}
			return client().call(http.MethodGet, "/appointments", q, nil)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, defaults to --from")
	cmd.Flags().StringVar(&patientID, "patient-id", "", "list this patient's appointments")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func freeAppCmd(client clientFunc) *cobra.Command {
	var from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "freeapp",
		Short: "Show free slots within business hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"from": {from}}
			if to != "" {
				q.Set("to", to)
			}
			if !asJSON {
				q.Set("format", "text")
			}
			return client().call(http.MethodGet, "/appointments/free", q, nil)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, defaults to --from")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func listRemCmd(client clientFunc) *cobra.Command {
	var format, date string
	cmd := &cobra.Command{
		Use:   "listrem",
		Short: "Show reminders for the day, week or month around a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPut, "/reminders/view", nil, map[string]string{
				"format": format,
				"date":   date,
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "week", "day, week or month")
	cmd.Flags().StringVar(&date, "date", "", "anchor date, defaults to today")
	return cmd
}

func addRemCmd(client clientFunc) *cobra.Command {
	var title, comment, date, start, end string
	cmd := &cobra.Command{
		Use:   "addrem",
		Short: "Add a reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPost, "/reminders", nil, map[string]string{
				"title":   title,
				"comment": comment,
				"date":    date,
				"start":   start,
				"end":     end,
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "reminder title")
	cmd.Flags().StringVar(&comment, "comment", "", "free text")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "optional start time, HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "optional end time, HH:MM")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func delRemCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delrem <id>",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodDelete, "/reminders/"+url.PathEscape(args[0]), nil, nil)
		},
	}
}

func addDirCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   `adddir <parent> <name>`,
		Short: `Create a medicine directory, e.g. adddir root\painkillers strong`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPost, "/directories", nil, map[string]string{
				"parent": args[0],
				"name":   args[1],
			})
		},
	}
}

func addMedCmd(client clientFunc) *cobra.Command {
	var parent, price string
	var quantity int
	cmd := &cobra.Command{
		Use:   "addmed <name>",
		Short: "Add a medicine to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPost, "/medicines", nil, map[string]any{
				"parent":   parent,
				"name":     args[0],
				"quantity": quantity,
				"price":    price,
			})
		},
	}
	cmd.Flags().StringVar(&parent, "dir", "root", `directory path, e.g. root\painkillers`)
	cmd.Flags().IntVar(&quantity, "quantity", 0, "units in stock")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	return cmd
}

func purchaseMedCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "purchasemed <path> <quantity> <cost>",
		Short: `Record a stock purchase, e.g. purchasemed root\test1\test2\med 40 50.0`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity %q is not a whole number", args[1])
			}
			return client().call(http.MethodPost, "/medicines/purchase", nil, map[string]any{
				"path":     args[0],
				"quantity": qty,
				"cost":     args[2],
			})
		},
	}
}

func setThresholdCmd(client clientFunc) *cobra.Command {
	var directory bool
	cmd := &cobra.Command{
		Use:   "setthreshold <path> <threshold>",
		Short: "Set the low stock threshold of a medicine, or of a whole directory with --dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("threshold %q is not a whole number", args[1])
			}
			path := "/medicines/threshold"
			if directory {
				path = "/directories/threshold"
			}
			return client().call(http.MethodPut, path, nil, map[string]any{
				"path":      args[0],
				"threshold": n,
			})
		},
	}
	cmd.Flags().BoolVar(&directory, "dir", false, "apply to the directory and everything below it")
	return cmd
}

func consultCmd(client clientFunc) *cobra.Command {
	var patientID, name, description string
	var prescriptions []string
	cmd := &cobra.Command{
		Use:   "consult",
		Short: "Record a consultation and dispense prescriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type prescription struct {
				Medicine string `json:"medicine"`
				Quantity int    `json:"quantity"`
			}
			var list []prescription
			for _, p := range prescriptions {
				med, qty, ok := strings.Cut(p, "=")
				n, err := strconv.Atoi(qty)
				if !ok || err != nil {
					return fmt.Errorf("prescription %q must look like medicine=quantity", p)
				}
				list = append(list, prescription{Medicine: med, Quantity: n})
			}
			return client().call(http.MethodPost, "/consultations", nil, map[string]any{
				"patient_id":    patientID,
				"patient_name":  name,
				"description":   description,
				"prescriptions": list,
			})
		},
	}
	cmd.Flags().StringVar(&patientID, "patient-id", "", "patient identifier (NRIC)")
	cmd.Flags().StringVar(&name, "name", "", "patient name")
	cmd.Flags().StringVar(&description, "description", "", "consultation notes")
	cmd.Flags().StringArrayVar(&prescriptions, "prescribe", nil, "medicine=quantity, repeatable")
	_ = cmd.MarkFlagRequired("patient-id")
	return cmd
}

func statisticsCmd(client clientFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "statistics <MMYY> [MMYY]",
		Short: "Revenue and expenditure for a month or range of months",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"from": {args[0]}}
			if len(args) == 2 {
				q.Set("to", args[1])
			}
			if !asJSON {
				q.Set("format", "text")
			}
			return client().call(http.MethodGet, "/statistics", q, nil)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func setConsultFeeCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "setconsultfee <fee>",
		Short: "Change the fee charged for future consultations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().call(http.MethodPut, "/statistics/consultation-fee", nil, map[string]string{"fee": args[0]})
		},
	}
}
