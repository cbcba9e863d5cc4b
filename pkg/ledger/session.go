package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/finsense/finsense/pkg/memory"
)

const (
	recordText = "text"
	recordJSON = "json"
)

// sessionRecord is the stored form of a memory entry.
type sessionRecord struct {
	Role string `msgpack:"role"`
	Kind string `msgpack:"kind"`
	Text string `msgpack:"text"`
}

type sessionDoc struct {
	Name      string          `msgpack:"name"`
	UpdatedAt time.Time       `msgpack:"updated_at"`
	Records   []sessionRecord `msgpack:"records"`
}

func sessionKey(user, name string) string {
	return userKey(user, "session", name)
}

func (l *Ledger) SaveSession(_ context.Context, user, name string, mem *memory.Memory) error {
	if err := checkSegment(user); err != nil {
		return err
	}
	if err := checkSegment(name); err != nil {
		return err
	}
	doc := sessionDoc{Name: name, UpdatedAt: l.now().UTC()}
	for _, e := range mem.All() {
		rec := sessionRecord{Role: string(e.Role), Kind: recordText, Text: e.Content.String()}
		if _, ok := e.Content.(memory.JSON); ok {
			rec.Kind = recordJSON
		}
		doc.Records = append(doc.Records, rec)
	}
	return l.setValue(sessionKey(user, name), doc)
}

func (l *Ledger) LoadSession(_ context.Context, user, name string) (*memory.Memory, error) {
	if err := checkSegment(user); err != nil {
		return nil, err
	}
	if err := checkSegment(name); err != nil {
		return nil, err
	}
	var doc sessionDoc
	ok, err := l.getValue(sessionKey(user, name), &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, name)
	}
	mem := memory.New()
	for _, rec := range doc.Records {
		e := memory.Entry{Role: memory.Role(rec.Role), Content: memory.Text(rec.Text)}
		if rec.Kind == recordJSON && json.Valid([]byte(rec.Text)) {
			e.Content = memory.JSON(rec.Text)
		}
		mem.Add(e)
	}
	return mem, nil
}

func (l *Ledger) ListSessions(_ context.Context, user string) ([]SessionInfo, error) {
	if err := checkSegment(user); err != nil {
		return nil, err
	}
	prefix := userKey(user, "session") + sep
	var out []SessionInfo
	for p, err := range l.kv.scan(prefix) {
		if err != nil {
			return nil, err
		}
		var doc sessionDoc
		if err := msgpack.Unmarshal(p.value, &doc); err != nil {
			return nil, fmt.Errorf("ledger: decode %s: %w", p.key, err)
		}
		out = append(out, SessionInfo{
			Name:      strings.TrimPrefix(p.key, prefix),
			Entries:   len(doc.Records),
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

func (l *Ledger) DeleteSession(_ context.Context, user, name string) error {
	if err := checkSegment(user); err != nil {
		return err
	}
	if err := checkSegment(name); err != nil {
		return err
	}
	return l.kv.del(sessionKey(user, name))
}
