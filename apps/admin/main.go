package main

import (
	"fmt"
	"log"
	"os"

	"github.com/shikshahub/portal/core"
	sqlxprofile "github.com/shikshahub/portal/storage/profile/sqlx"
)

func main() {
	conf := core.NewConfig()

	if conf.ProfileStoreDSN == "" {
		log.Fatal("admin requires PROFILE_STORE_DSN (a persistent profile store)")
	}
	store, err := sqlxprofile.Open(conf.ProfileStoreDSN)
	if err != nil {
		log.Fatalf("opening profile store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("closing profile store: %v", err)
		}
	}()

	cli := &commandLine{
		conf:     conf,
		profiles: store,
		schema:   store,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
