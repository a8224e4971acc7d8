package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// JSONPortfolioStore guarda el portfolio como un único documento JSON.
// Save escribe en un temporal del mismo directorio y hace rename: un crash a
// mitad de escritura nunca deja un snapshot a medias.
type JSONPortfolioStore struct {
	path string
}

// NewJSONPortfolioStore crea el store sobre path. El fichero no tiene que existir.
func NewJSONPortfolioStore(path string) *JSONPortfolioStore {
	return &JSONPortfolioStore{path: path}
}

// Load lee el snapshot. Devuelve domain.ErrPortfolioNotFound si el fichero no existe.
func (s *JSONPortfolioStore) Load(_ context.Context) (*domain.Portfolio, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.JSONPortfolioStore.Load: %w", err)
	}

	var p domain.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("storage.JSONPortfolioStore.Load: decode %q: %w", s.path, err)
	}
	if p.Positions == nil {
		p.Positions = []domain.Position{}
	}
	if p.ClosedPositions == nil {
		p.ClosedPositions = []domain.Position{}
	}
	return &p, nil
}

// Save escribe el snapshot completo (indentado, terminado en newline).
func (s *JSONPortfolioStore) Save(_ context.Context, p *domain.Portfolio) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.JSONPortfolioStore.Save: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage.JSONPortfolioStore.Save: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage.JSONPortfolioStore.Save: temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op tras el rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.JSONPortfolioStore.Save: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.JSONPortfolioStore.Save: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.JSONPortfolioStore.Save: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("storage.JSONPortfolioStore.Save: rename: %w", err)
	}
	return nil
}
