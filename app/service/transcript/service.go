package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"moviemate/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// Service appends closed conversations to a JSON lines file.
type Service struct {
	path string
	mu   sync.Mutex
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Transcript.Path)
}

func NewService(path string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.In("transcript").With("path", path).Errorf("failed to create transcript directory: %w", err)
	}

	return &Service{path: path}, nil
}

// Append stores rec unless it holds no user message.
func (s *Service) Append(rec Record) error {
	if pie.FindFirstUsing(rec.Messages, func(m Message) bool { return m.Role == RoleUser }) < 0 {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return oops.In("transcript").Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return oops.In("transcript").With("path", s.path).Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err = writer.Write(append(data, '\n')); err != nil {
		return oops.In("transcript").Errorf("failed to write record: %w", err)
	}

	if err = writer.Flush(); err != nil {
		return oops.In("transcript").Errorf("failed to flush writer: %w", err)
	}

	slog.Debug("Archived conversation",
		"conversation_id", rec.ConversationID,
		"messages", len(rec.Messages),
	)

	return nil
}

// Load returns every archived record in file order.
func (s *Service) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.In("transcript").With("path", s.path).Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var records []Record

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err = json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, oops.In("transcript").Errorf("failed to parse JSON line: %w", err)
		}

		records = append(records, rec)
	}

	if err = scanner.Err(); err != nil {
		return nil, oops.In("transcript").Errorf("error reading transcript file: %w", err)
	}

	return records, nil
}
