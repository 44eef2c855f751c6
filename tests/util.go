package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/session"
	inmemprofile "github.com/shikshahub/portal/storage/profile/inmem"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger implements core.Logger and records every call for assertions.
// Fatal records instead of exiting.
type Logger struct {
	mutex   sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	var n int
	for _, e := range l.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Entries returns a copy of all captured entries.
func (l *Logger) Entries() []LogEntry {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	entries := make([]LogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// SetProfile seeds an identity's profile record.
func SetProfile(t *testing.T, store *inmemprofile.Store, id core.Identity, role session.Role) {
	t.Helper()
	err := store.SetDocument(context.Background(), session.ProfileCollection, string(id),
		map[string]interface{}{"role": string(role)})
	if err != nil {
		t.Fatalf("SetProfile() failed: %v", err)
	}
}

// QuizCollection returns the per-identity quiz partition path.
func QuizCollection(appID string, id core.Identity) string {
	return fmt.Sprintf("artifacts/%s/users/%s/quizzes", appID, id)
}
