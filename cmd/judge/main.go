// Command judge is a terminal scoring client. It talks to the competition
// API directly and drives the same console the HTTP service uses.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/stemsi/mtq-judge/internal/competition"
	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/logger"
	"github.com/stemsi/mtq-judge/internal/scoring"
)

func main() {
	cfg := config.Load()

	var (
		apiURL   string
		username string
		logLevel string
	)
	flag.StringVar(&apiURL, "api", cfg.CompetitionAPIURL, "Competition API base URL")
	flag.StringVar(&username, "user", "", "Judge username")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	log := logger.New(os.Stderr, logLevel, "pretty")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	if username == "" {
		username = prompt(in, "Username: ")
	}
	password, err := readPassword(in)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}

	client := competition.New(apiURL, cfg.CompetitionAPITimeout, log)
	res, err := client.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, competition.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "Username atau kata sandi salah.")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Login failed")
	}

	api := client.Session(res.Token)
	t := &terminal{
		in:      in,
		out:     os.Stdout,
		api:     api,
		console: scoring.NewConsole(api, api, nil),
	}
	fmt.Fprintf(t.out, "Assalamu'alaikum, %s. Type \"help\" for commands.\n", res.Judge.Name)

	if err := t.run(ctx); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Judge console stopped")
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword hides input on a terminal and falls back to a plain line
// when stdin is piped.
func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, ""), nil
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
