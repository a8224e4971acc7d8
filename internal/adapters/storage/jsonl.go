package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// maxDecisionLine acota el tamaño de una línea del log al leer.
const maxDecisionLine = 1 << 20

// JSONLDecisionLog es el decision trail: un objeto JSON por línea, solo append.
type JSONLDecisionLog struct {
	path string
}

// NewJSONLDecisionLog crea el log sobre path.
func NewJSONLDecisionLog(path string) *JSONLDecisionLog {
	return &JSONLDecisionLog{path: path}
}

// Append añade las decisiones al final del fichero con una sola escritura.
func (l *JSONLDecisionLog) Append(_ context.Context, decisions ...domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range decisions {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("storage.JSONLDecisionLog.Append: encode: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("storage.JSONLDecisionLog.Append: mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage.JSONLDecisionLog.Append: open: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("storage.JSONLDecisionLog.Append: write: %w", err)
	}
	return f.Close()
}

// Read devuelve todas las decisiones. Un fichero inexistente es un log vacío.
func (l *JSONLDecisionLog) Read(_ context.Context) ([]domain.Decision, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.JSONLDecisionLog.Read: %w", err)
	}
	defer f.Close()

	var out []domain.Decision
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxDecisionLine)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var d domain.Decision
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("storage.JSONLDecisionLog.Read: line %d: %w", line, err)
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("storage.JSONLDecisionLog.Read: %w", err)
	}
	return out, nil
}
