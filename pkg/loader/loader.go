// Package loader reads a dataset directory (users.csv, orders.json or orders.jsonl, books.yaml)
// into raw records. Nothing is cleaned here beyond decoding.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	UsersFile       = "users.csv"
	OrdersFile      = "orders.json"
	OrdersLinesFile = "orders.jsonl"
	BooksFile       = "books.yaml"
)

// Dataset is the raw content of one dataset directory
type Dataset struct {
	Dir    string
	Users  []models.UserRecord
	Orders []models.OrderRecord
	Books  []models.BookRecord
}

// Loader reads dataset directories
type Loader struct {
	logger ectologger.Logger
}

// NewLoader creates a new loader
func NewLoader(logger ectologger.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads every input file of dir. Each file is closed before the next one is opened.
func (l *Loader) Load(ctx context.Context, dir string) (*Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.Loader.Load")
	defer span.End()

	ds := &Dataset{Dir: dir}

	var err error
	ds.Users, err = loadFile(filepath.Join(dir, UsersFile), LoadUsers)
	if err != nil {
		return nil, err
	}

	ordersPath, jsonLines, err := findOrdersFile(dir)
	if err != nil {
		return nil, err
	}
	ds.Orders, err = loadFile(ordersPath, func(r io.Reader) ([]models.OrderRecord, error) {
		return LoadOrders(r, jsonLines)
	})
	if err != nil {
		return nil, err
	}

	ds.Books, err = loadFile(filepath.Join(dir, BooksFile), LoadBooks)
	if err != nil {
		return nil, err
	}

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"dir":    dir,
		"users":  len(ds.Users),
		"orders": len(ds.Orders),
		"books":  len(ds.Books),
	}).Info("Loaded dataset")

	return ds, nil
}

func loadFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

func findOrdersFile(dir string) (string, bool, error) {
	candidates := []struct {
		name  string
		lines bool
	}{
		{OrdersFile, false},
		{OrdersLinesFile, true},
	}
	for _, c := range candidates {
		path := filepath.Join(dir, c.name)
		_, err := os.Stat(path)
		if err == nil {
			return path, c.lines, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", false, fmt.Errorf("no orders file (%s or %s) in %s: %w", OrdersFile, OrdersLinesFile, dir, fs.ErrNotExist)
}
