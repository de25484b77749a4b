package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"getricher/internal/budget"
	"getricher/internal/budget/lunchmoney"
	"getricher/internal/cli"
	"getricher/internal/config"
	"getricher/internal/secrets"
)

const usage = `usage: token-init <command>

commands:
  set [token]   store the Lunch Money access token (read from stdin when omitted)
  show          print the stored token, masked
  verify        list accounts with the stored token
  delete        remove the stored token

The token file is LUNCHMONEY_TOKEN_FILE (default ./data/lunchmoney.token).`

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	store := secrets.NewFileStore(cfg.LunchMoneyTokenFile)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "set":
		var token string
		if len(os.Args) > 2 {
			token = os.Args[2]
		} else {
			token = readToken()
		}
		if err := store.SaveToken(token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("Saved token to %s\n", store.Path())

	case "show":
		token, ok := store.GetToken()
		if !ok {
			fmt.Printf("No token stored in %s\n", store.Path())
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", store.Path(), mask(token))

	case "verify":
		verify(cfg, store)

	case "delete":
		if err := store.DeleteToken(); err != nil {
			log.Fatalf("delete token: %v", err)
		}
		fmt.Printf("Removed %s\n", store.Path())

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func readToken() string {
	fmt.Print("Lunch Money access token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read token: %v", err)
	}
	return strings.TrimSpace(line)
}

func verify(cfg *config.Config, store *secrets.FileStore) {
	token, ok := store.GetToken()
	if !ok {
		log.Fatalf("no token stored in %s", store.Path())
	}

	client, err := lunchmoney.New(cfg.LunchMoneyBaseURL, lunchmoney.WithTimeout(cfg.LunchMoneyTimeout))
	if err != nil {
		log.Fatalf("lunch money client: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Minute)
	defer cancelTimeout()

	accounts, err := client.FetchAccounts(ctx, token)
	if err != nil {
		log.Fatalf("verify token: %s", budget.UserMessage(err))
	}
	fmt.Printf("Token accepted, %d accounts:\n", len(accounts))
	for _, a := range accounts {
		fmt.Printf("  %d\t%s\t%s\n", a.ID, a.DisplayName, a.InstitutionName)
	}
}

// mask keeps the last four characters.
func mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
