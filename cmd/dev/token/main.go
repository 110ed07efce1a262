package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hallbooking/internal/auth"
	"hallbooking/pkg/config"
)

// Mints a bearer token for local testing, signed with JWT_SECRET.
func main() {
	sub := flag.String("sub", "", "user id (token subject)")
	name := flag.String("name", "", "display name")
	contact := flag.String("contact", "", "email or phone")
	admin := flag.Bool("admin", false, "grant the admin role")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if *sub == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	role := auth.RoleUser
	if *admin {
		role = auth.RoleAdmin
	}
	tok, err := auth.IssueToken(auth.Identity{ID: *sub, Name: *name, Contact: *contact, Role: role},
		cfg.JWT.Secret, cfg.JWT.Audience, time.Now(), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
