package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/session"
	inmemcreds "github.com/shikshahub/portal/storage/credential/inmem"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	documentStore interface {
		SetDocument(ctx context.Context, collection, id string, data map[string]interface{}) error
	}

	schemaInitializer interface {
		InitSchema(ctx context.Context) error
	}

	commandLine struct {
		conf     *core.Config
		profiles documentStore
		schema   schemaInitializer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  initdb - create the profile store schema")
	fmt.Println("  addprofile -identity IDENTITY -role student|teacher - create or update a user profile")
	fmt.Println("  seedquizzes -identity IDENTITY [-count N] - seed sample quizzes for an identity")
	fmt.Println("  minttoken -identity IDENTITY - mint a bootstrap auth token (signing key is prompted)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addProfileCmd := flag.NewFlagSet("addprofile", flag.ExitOnError)
	addProfileIdentity := addProfileCmd.String("identity", "", "The identity the profile belongs to.")
	addProfileRole := addProfileCmd.String("role", "", "The profile role: student or teacher.")

	seedQuizzesCmd := flag.NewFlagSet("seedquizzes", flag.ExitOnError)
	seedQuizzesIdentity := seedQuizzesCmd.String("identity", "", "The identity owning the quizzes.")
	seedQuizzesCount := seedQuizzesCmd.Int("count", 3, "Number of quizzes to seed.")

	mintTokenCmd := flag.NewFlagSet("minttoken", flag.ExitOnError)
	mintTokenIdentity := mintTokenCmd.String("identity", "", "The identity the token authenticates.")

	switch args[1] {
	case "initdb":
		return cli.initDB()
	case "addprofile":
		if err := addProfileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addProfileIdentity == "" || *addProfileRole == "" {
			addProfileCmd.Usage()
			return errHelp
		}
		return cli.addProfile(*addProfileIdentity, *addProfileRole)
	case "seedquizzes":
		if err := seedQuizzesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedQuizzesIdentity == "" || *seedQuizzesCount < 1 {
			seedQuizzesCmd.Usage()
			return errHelp
		}
		return cli.seedQuizzes(*seedQuizzesIdentity, *seedQuizzesCount)
	case "minttoken":
		if err := mintTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *mintTokenIdentity == "" {
			mintTokenCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter signing key:")
		key, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(key) == 0 {
			mintTokenCmd.Usage()
			return errHelp
		}
		return cli.mintToken(*mintTokenIdentity, key)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) initDB() error {
	return cli.schema.InitSchema(context.Background())
}

// addProfile creates or updates the authorization record for an identity.
func (cli *commandLine) addProfile(identity, role string) error {
	prof := session.Profile{Role: session.Role(core.CleanString(role, true /* lower */))}
	if err := core.Validate.Struct(prof); err != nil {
		return err
	}
	return cli.profiles.SetDocument(
		context.Background(),
		session.ProfileCollection,
		core.CleanString(identity),
		map[string]interface{}{"role": string(prof.Role)},
	)
}

// seedQuizzes writes sample quiz documents into an identity's partition.
func (cli *commandLine) seedQuizzes(identity string, count int) error {
	identity = core.CleanString(identity)
	collection := fmt.Sprintf("artifacts/%s/users/%s/quizzes", cli.conf.AppID, identity)

	ctx := context.Background()
	now := time.Now().UTC()
	for i := 1; i <= count; i++ {
		doc := map[string]interface{}{
			"title":    fmt.Sprintf("Sample Quiz %d", i),
			"subject":  "Mathematics",
			"grade":    "Class 5",
			"language": "English",
			"questions": []interface{}{
				map[string]interface{}{"text": "2 + 2 = ?", "answer": "4"},
				map[string]interface{}{"text": "5 x 3 = ?", "answer": "15"},
			},
			"created_at": now.Format(time.RFC3339),
		}
		if err := cli.profiles.SetDocument(ctx, collection, fmt.Sprintf("seed-quiz-%d", i), doc); err != nil {
			return err
		}
	}
	return nil
}

// mintToken prints a bootstrap token exchangeable via SignInWithToken.
func (cli *commandLine) mintToken(identity string, key []byte) error {
	token, err := inmemcreds.MintToken(core.Identity(core.CleanString(identity)), key, cli.conf.Server.JWTExpirationDelta)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
