package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"finbook/internal/auth"
	"finbook/internal/config"
	"finbook/internal/core"
	"finbook/internal/storage"
)

// addstaff creates or promotes an admin account. The password is read from
// the terminal, never from arguments or the environment.
func main() {
	_ = godotenv.Load()

	username := flag.String("username", "", "username for the admin account")
	email := flag.String("email", "", "email for the admin account")
	flag.Parse()

	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: addstaff -username NAME -email ADDRESS")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	// Promote an existing account instead of failing on a taken username.
	if existing, err := repo.GetUserByUsername(ctx, strings.TrimSpace(*username)); err == nil {
		if existing.IsAdmin {
			fmt.Printf("%s is already an admin\n", existing.Username)
			return
		}
		if err := repo.SetUserAdmin(ctx, existing.ID, true); err != nil {
			fmt.Fprintf(os.Stderr, "promote user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Promoted %s to admin\n", existing.Username)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "look up user: %v\n", err)
		os.Exit(1)
	}

	password, err := readPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	u := &core.User{
		Username:     strings.TrimSpace(*username),
		Email:        strings.TrimSpace(*email),
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created admin account %s (id %d)\n", u.Username, u.ID)
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(first) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}

	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}

	return string(first), nil
}
