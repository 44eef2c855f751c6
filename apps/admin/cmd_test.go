package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/session"
	inmemcreds "github.com/shikshahub/portal/storage/credential/inmem"
	inmemprofile "github.com/shikshahub/portal/storage/profile/inmem"
	testutil "github.com/shikshahub/portal/tests"
)

var profStore *inmemprofile.Store

type fakeSchema struct {
	calls int
}

func (f *fakeSchema) InitSchema(ctx context.Context) error {
	f.calls++
	return nil
}

func setup(t *testing.T) (*commandLine, *fakeSchema) {
	profStore = inmemprofile.New()
	schema := &fakeSchema{}

	conf := &core.Config{AppID: "test-app"}
	conf.Server.JWTExpirationDelta = time.Hour

	return &commandLine{
		conf:     conf,
		profiles: profStore,
		schema:   schema,
	}, schema
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_initDB(t *testing.T) {
	cli, schema := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "initdb", args: []string{"initdb"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if schema.calls != 1 {
		t.Errorf("InitSchema() called %d times, want 1", schema.calls)
	}
}

func Test_commandLine_addProfile(t *testing.T) {
	cli, _ := setup(t)

	type extra struct {
		wantRole string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addprofile"}, wantErr: errHelp},
		{name: "identity but no role", args: []string{"addprofile", "-identity", "u1"}, wantErr: errHelp},
		{name: "role but no identity", args: []string{"addprofile", "-role", "teacher"}, wantErr: errHelp},
		{name: "teacher", args: []string{"addprofile", "-identity", "u1", "-role", "teacher"}, extra: extra{wantRole: "teacher"}},
		{name: "role is normalized", args: []string{"addprofile", "-identity", "u2", "-role", " Student "}, extra: extra{wantRole: "student"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if extra, ok := tt.extra.(extra); ok {
				doc, err := profStore.GetDocument(context.Background(), session.ProfileCollection, args[3])
				if err != nil {
					t.Fatalf("GetDocument() failed, %v", err)
				}
				if !doc.Exists {
					t.Fatal("profile document was not written")
				}
				if doc.Data["role"] != extra.wantRole {
					t.Errorf("role = %v, want %v", doc.Data["role"], extra.wantRole)
				}
			}
		})
	}
}

func Test_commandLine_addProfile_invalidRole(t *testing.T) {
	cli, _ := setup(t)

	if err := cli.run([]string{"admin", "addprofile", "-identity", "u1", "-role", "principal"}); err == nil {
		t.Fatal("cli.run() expected a validation error")
	}
	doc, err := profStore.GetDocument(context.Background(), session.ProfileCollection, "u1")
	if err != nil {
		t.Fatalf("GetDocument() failed, %v", err)
	}
	if doc.Exists {
		t.Error("invalid profile must not be written")
	}
}

func Test_commandLine_seedQuizzes(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no identity", args: []string{"seedquizzes"}, wantErr: errHelp},
		{name: "zero count", args: []string{"seedquizzes", "-identity", "u1", "-count", "0"}, wantErr: errHelp},
		{name: "default count", args: []string{"seedquizzes", "-identity", "u1"}, extra: 3},
		{name: "explicit count", args: []string{"seedquizzes", "-identity", "u2", "-count", "5"}, extra: 5},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			wantCount, ok := tt.extra.(int)
			if !ok {
				return
			}

			collection := testutil.QuizCollection(cli.conf.AppID, core.Identity(args[3]))
			var docs []core.Document
			sub := profStore.SubscribeQuery(collection, func(snapshot []core.Document) { docs = snapshot }, func(error) {})
			defer sub.Close()

			if len(docs) != wantCount {
				t.Fatalf("seeded %d quizzes, want %d", len(docs), wantCount)
			}
			if got := docs[0].Data["title"]; got != "Sample Quiz 1" {
				t.Errorf("title = %v, want Sample Quiz 1", got)
			}
			if docs[0].Data["questions"] == nil {
				t.Error("seeded quiz has no questions")
			}
		})
	}
}

func Test_commandLine_mintToken(t *testing.T) {
	cli, _ := setup(t)

	type extra struct {
		key string
	}
	tests := []cliTest{
		{name: "no identity", args: []string{"minttoken"}, wantErr: errHelp},
		{name: "empty key", args: []string{"minttoken", "-identity", "teacher-1"}, wantErr: errHelp},
		{name: "mint", args: []string{"minttoken", "-identity", "teacher-1"}, extra: extra{key: "signing-key"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.key), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_mintToken_roundTrip(t *testing.T) {
	cli, _ := setup(t)

	token, err := captureStdout(t, func() error {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte("signing-key"), nil }
		return cli.run([]string{"admin", "minttoken", "-identity", "teacher-1"})
	})
	if err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}

	creds := inmemcreds.New([]byte("signing-key"))
	id, err := creds.SignInWithToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SignInWithToken() failed, %v", err)
	}
	if id != core.Identity("teacher-1") {
		t.Errorf("identity = %v, want teacher-1", id)
	}
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns the
// last non-prompt line written.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed, %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	runErr := fn()
	_ = w.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured output failed, %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), runErr
}

func Test_commandLine_usage(t *testing.T) {
	for _, cmd := range []string{"addprofile", "seedquizzes", "minttoken"} {
		t.Run(fmt.Sprintf("%s shows usage", cmd), func(t *testing.T) {
			cli, _ := setup(t)
			if err := cli.run([]string{"admin", cmd}); err != errHelp {
				t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
			}
		})
	}
}
