package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"terminusa/internal/game/combat"
)

const (
	handleEnv     = "TERMINUSA_HANDLE"
	credentialEnv = "TERMINUSA_CREDENTIAL"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Fprintln(os.Stderr, msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printHeader(msg string) {
	accent.Println(msg)
}

// readCredential takes the credential from the environment, a no-echo
// terminal prompt, or the first line of piped stdin, in that order.
func readCredential(label string) (string, error) {
	if v := os.Getenv(credentialEnv); v != "" {
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read credential: %w", err)
		}
		return string(b), nil
	}

	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewCredential asks twice on a terminal; other sources are read once.
func readNewCredential() (string, error) {
	first, err := readCredential("Credential")
	if err != nil {
		return "", err
	}
	if os.Getenv(credentialEnv) != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return first, nil
	}
	second, err := readCredential("Repeat credential")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("credentials do not match")
	}
	return first, nil
}

// narrator prints each combat turn once, in order.
type narrator struct {
	out   io.Writer
	shown int
}

func (n *narrator) turn(t combat.Turn) {
	if t.Round <= n.shown {
		return
	}
	n.shown = t.Round

	switch t.Action {
	case combat.Retreat:
		warn.Fprintf(n.out, "Round %d: you retreat with %d health\n", t.Round, t.PlayerHealth)
		return
	case combat.Engage:
		fmt.Fprintf(n.out, "Round %d: you deal %s", t.Round, success.Sprintf("%d", t.DamageDealt))
		if t.DamageTaken > 0 {
			fmt.Fprintf(n.out, ", you take %s", danger.Sprintf("%d", t.DamageTaken))
		}
		fmt.Fprintf(n.out, "  [you %d | enemy %d]\n", t.PlayerHealth, t.EnemyHealth)
	}

	switch t.State {
	case combat.EnemyDefeated:
		success.Fprintln(n.out, "The corruption is purged.")
	case combat.PlayerDefeated:
		danger.Fprintln(n.out, "You were defeated.")
	}
}

func (n *narrator) turns(ts []combat.Turn) {
	for _, t := range ts {
		n.turn(t)
	}
}

// promptTactic asks for every action on in, narrating the previous turn first.
// Anything unreadable retreats.
func promptTactic(in *bufio.Reader, out io.Writer, n *narrator) combat.Tactic {
	return func(s combat.Snapshot) combat.Action {
		if s.Last != nil {
			n.turn(*s.Last)
		}
		for {
			fmt.Fprintf(out, "Round %d  you %d hp  enemy %d hp  (e)ngage/(r)etreat [e]: ", s.Round, s.PlayerHealth, s.EnemyHealth)
			text, err := in.ReadString('\n')
			if err != nil && text == "" {
				return combat.Retreat
			}
			if a, ok := parseAction(text); ok {
				return a
			}
			warn.Fprintln(out, "Answer e or r.")
		}
	}
}

func parseAction(s string) (combat.Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "e", "engage", "attack":
		return combat.Engage, true
	case "r", "retreat", "flee":
		return combat.Retreat, true
	}
	return 0, false
}
