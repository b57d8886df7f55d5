// Package inventory keeps the medicine directory tree: directories holding
// medicines and further directories, each medicine with a stock quantity
// and a restock threshold.
package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/clinicerr"
)

const (
	RootName      = "root"
	PathSeparator = `\`
)

var (
	ErrMedicineNotFound   = fmt.Errorf("%w: medicine not found", clinicerr.ErrNotFound)
	ErrDirectoryNotFound  = fmt.Errorf("%w: directory not found", clinicerr.ErrNotFound)
	ErrDuplicateMedicine  = fmt.Errorf("%w: medicine already exists", clinicerr.ErrDuplicate)
	ErrDuplicateDirectory = fmt.Errorf("%w: directory already exists", clinicerr.ErrDuplicate)
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", clinicerr.ErrValidation)
)

// Node is either a *Medicine or a *Directory.
type Node interface {
	node()
}

type Medicine struct {
	name      string
	quantity  int
	threshold int
	price     decimal.Decimal
}

func (*Medicine) node() {}

func (m *Medicine) Name() string           { return m.name }
func (m *Medicine) Quantity() int          { return m.quantity }
func (m *Medicine) Threshold() int         { return m.threshold }
func (m *Medicine) Price() decimal.Decimal { return m.price }

func (m *Medicine) AddQuantity(n int) error {
	if n <= 0 {
		return clinicerr.Validation("quantity to add must be positive")
	}
	m.quantity += n
	return nil
}

// SubtractQuantity never takes the stock below zero.
func (m *Medicine) SubtractQuantity(n int) error {
	if n <= 0 {
		return clinicerr.Validation("quantity to subtract must be positive")
	}
	if n > m.quantity {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientStock, m.name, m.quantity, n)
	}
	m.quantity -= n
	return nil
}

func (m *Medicine) SetThreshold(n int) error {
	if n < 0 {
		return clinicerr.Validation("threshold must not be negative")
	}
	m.threshold = n
	return nil
}

func (m *Medicine) SetPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return clinicerr.Validation("price must not be negative")
	}
	m.price = p
	return nil
}

type Directory struct {
	name        string
	threshold   int
	medicines   []*Medicine
	directories []*Directory
}

func (*Directory) node() {}

func (d *Directory) Name() string              { return d.name }
func (d *Directory) Threshold() int            { return d.threshold }
func (d *Directory) Medicines() []*Medicine    { return d.medicines }
func (d *Directory) Directories() []*Directory { return d.directories }

// SetThreshold changes only this directory's own value. Cascading to the
// subtree is the caller's job since every medicine touched needs its
// reminder re-evaluated.
func (d *Directory) SetThreshold(n int) error {
	if n < 0 {
		return clinicerr.Validation("threshold must not be negative")
	}
	d.threshold = n
	return nil
}

func (d *Directory) child(name string) *Directory {
	for _, c := range d.directories {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Inventory is the medicine tree. Medicine names are unique across the
// whole tree. Inventory is not safe for concurrent use.
type Inventory struct {
	root   *Directory
	byName map[string]*Medicine
}

func New() *Inventory {
	return &Inventory{
		root:   &Directory{name: RootName},
		byName: make(map[string]*Medicine),
	}
}

func (inv *Inventory) Root() *Directory {
	return inv.root
}

// ParsePath splits a backslash separated path such as root\painkillers\med.
func ParsePath(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(s), PathSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func FormatPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// FindDirectory resolves a path starting at root.
func (inv *Inventory) FindDirectory(path []string) (*Directory, error) {
	if len(path) == 0 || path[0] != RootName {
		return nil, fmt.Errorf("%w: %q must start with %s", ErrDirectoryNotFound, FormatPath(path), RootName)
	}
	dir := inv.root
	for _, name := range path[1:] {
		if dir = dir.child(name); dir == nil {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, FormatPath(path))
		}
	}
	return dir, nil
}

// FindMedicine resolves either a full path ending in the medicine name or a
// bare medicine name.
func (inv *Inventory) FindMedicine(path []string) (*Medicine, error) {
	switch {
	case len(path) == 0:
		return nil, clinicerr.Validation("medicine path is empty")
	case len(path) == 1:
		return inv.FindMedicineByName(path[0])
	}

	dir, err := inv.FindDirectory(path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	name := path[len(path)-1]
	for _, m := range dir.medicines {
		if m.name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, FormatPath(path))
}

func (inv *Inventory) FindMedicineByName(name string) (*Medicine, error) {
	m, ok := inv.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, name)
	}
	return m, nil
}

// AddDirectory creates name under the directory at parent. The new
// directory inherits the parent's threshold.
func (inv *Inventory) AddDirectory(parent []string, name string) (*Directory, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, PathSeparator) {
		return nil, clinicerr.Validation("directory name must be non-empty and contain no separator")
	}
	dir, err := inv.FindDirectory(parent)
	if err != nil {
		return nil, err
	}
	if dir.child(name) != nil {
		return nil, fmt.Errorf("%w: %s%s%s", ErrDuplicateDirectory, FormatPath(parent), PathSeparator, name)
	}
	created := &Directory{name: name, threshold: dir.threshold}
	dir.directories = append(dir.directories, created)
	return created, nil
}

// AddMedicine creates a medicine in the directory at parent. The medicine
// takes the directory's threshold.
func (inv *Inventory) AddMedicine(parent []string, name string, quantity int, price decimal.Decimal) (*Medicine, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || strings.Contains(name, PathSeparator):
		return nil, clinicerr.Validation("medicine name must be non-empty and contain no separator")
	case quantity < 0:
		return nil, clinicerr.Validation("quantity must not be negative")
	case price.IsNegative():
		return nil, clinicerr.Validation("price must not be negative")
	}
	if _, exists := inv.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMedicine, name)
	}
	dir, err := inv.FindDirectory(parent)
	if err != nil {
		return nil, err
	}
	m := &Medicine{name: name, quantity: quantity, threshold: dir.threshold, price: price}
	dir.medicines = append(dir.medicines, m)
	inv.byName[name] = m
	return m, nil
}

// Walk visits d and everything below it in pre-order, using an explicit
// stack so depth is bounded by memory rather than the call stack.
func Walk(d *Directory, visit func(Node)) {
	stack := []Node{d}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)

		dir, ok := n.(*Directory)
		if !ok {
			continue
		}
		for i := len(dir.directories) - 1; i >= 0; i-- {
			stack = append(stack, dir.directories[i])
		}
		for i := len(dir.medicines) - 1; i >= 0; i-- {
			stack = append(stack, dir.medicines[i])
		}
	}
}
