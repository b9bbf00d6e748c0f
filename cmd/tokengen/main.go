package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/security"
)

// tokengen mints access tokens signed with the server's JWT secret, for operators
// and local testing.
func main() {
	configPath := flag.String("config", "config/config.example.yaml", "Path to configuration file")
	address := flag.String("address", "", "Caller address the token is issued to")
	roles := flag.String("roles", "", "Comma-separated roles (owner, arbiter)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	tm := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	token, err := tm.GenerateAccessToken(*address, roleList)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
