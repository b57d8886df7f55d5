package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type MedicineSnapshot struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Threshold int             `json:"threshold"`
	Price     decimal.Decimal `json:"price"`
}

type DirectorySnapshot struct {
	Name        string              `json:"name"`
	Threshold   int                 `json:"threshold"`
	Medicines   []MedicineSnapshot  `json:"medicines,omitempty"`
	Directories []DirectorySnapshot `json:"directories,omitempty"`
}

func (inv *Inventory) Snapshot() DirectorySnapshot {
	return snapshotDir(inv.root)
}

func snapshotDir(d *Directory) DirectorySnapshot {
	out := DirectorySnapshot{Name: d.name, Threshold: d.threshold}
	for _, m := range d.medicines {
		out.Medicines = append(out.Medicines, MedicineSnapshot{
			Name:      m.name,
			Quantity:  m.quantity,
			Threshold: m.threshold,
			Price:     m.price,
		})
	}
	for _, c := range d.directories {
		out.Directories = append(out.Directories, snapshotDir(c))
	}
	return out
}

// FromSnapshot rebuilds an inventory, enforcing the same rules as the
// incremental operations.
func FromSnapshot(snap DirectorySnapshot) (*Inventory, error) {
	inv := New()
	if snap.Name != "" && snap.Name != RootName {
		return nil, fmt.Errorf("inventory snapshot root is %q, want %q", snap.Name, RootName)
	}
	if err := inv.restoreDir([]string{RootName}, inv.root, snap); err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Inventory) restoreDir(path []string, dir *Directory, snap DirectorySnapshot) error {
	if err := dir.SetThreshold(snap.Threshold); err != nil {
		return err
	}
	for _, ms := range snap.Medicines {
		m, err := inv.AddMedicine(path, ms.Name, ms.Quantity, ms.Price)
		if err != nil {
			return fmt.Errorf("restore medicine %s: %w", ms.Name, err)
		}
		if err := m.SetThreshold(ms.Threshold); err != nil {
			return fmt.Errorf("restore medicine %s: %w", ms.Name, err)
		}
	}
	for _, ds := range snap.Directories {
		child, err := inv.AddDirectory(path, ds.Name)
		if err != nil {
			return fmt.Errorf("restore directory %s: %w", ds.Name, err)
		}
		childPath := append(append([]string(nil), path...), ds.Name)
		if err := inv.restoreDir(childPath, child, ds); err != nil {
			return err
		}
	}
	return nil
}

// Medicines lists every medicine in tree order.
func (inv *Inventory) Medicines() []*Medicine {
	var out []*Medicine
	Walk(inv.root, func(n Node) {
		if m, ok := n.(*Medicine); ok {
			out = append(out, m)
		}
	})
	return out
}
