// ask sends one question through the text path and prints the answer.
//
//	ask -q "هل لديكم كليلة ودمنة؟"
//	echo "كتب التاريخ" | ask
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/teslashibe/go-librarian/internal/config"
	"github.com/teslashibe/go-librarian/internal/log"
	"github.com/teslashibe/go-librarian/pkg/inference"
	"github.com/teslashibe/go-librarian/pkg/librarian"
)

func main() {
	question := flag.String("q", "", "Question to ask; read from stdin when empty")
	catalogPath := flag.String("catalog", "", "Catalog file; empty uses the built-in dataset")
	failFast := flag.Bool("fail-fast", false, "Only rotate keys on quota and auth failures")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall deadline")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	log.Init(level, cfg.IsProduction())
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *failFast {
		cfg.Google.FailFast = true
	}

	q := strings.TrimSpace(*question)
	if q == "" {
		q, err = readStdin()
		if err != nil || q == "" {
			fmt.Fprintln(os.Stderr, "usage: ask -q <question>")
			os.Exit(2)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := librarian.New(ctx, cfg, librarian.WithLogger(log.Component("ask")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	reply, err := app.Ask(ctx, q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", reply.Message.Text)
		if errors.Is(err, inference.ErrNoCredentials) {
			fmt.Fprintln(os.Stderr, "   Set GOOGLE_KEY_1..GOOGLE_KEY_4 in the environment or .env")
		}
		os.Exit(1)
	}

	fmt.Println(reply.Message.Text)
	for _, b := range reply.Offers {
		fmt.Printf("🔖 %s  %s (%s)\n", b.ID, b.Title, b.List)
	}
}

func readStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", err
	}
	var sb strings.Builder
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		sb.WriteString(sc.Text())
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String()), sc.Err()
}
