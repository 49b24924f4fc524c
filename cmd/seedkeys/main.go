// Command seedkeys provisions an organization, an application, and one API
// key, printing the raw key once. Meant for local setups and new-tenant
// onboarding scripts. With -revoke it disables an existing key instead,
// evicting the Redis cache entry when REDIS_ADDR is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/bugrelay/bugrelay-backend/internal/clients/redis"
	"github.com/bugrelay/bugrelay-backend/internal/db"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/services"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

func main() {
	orgName := flag.String("org", "", "organization name")
	appName := flag.String("app", "", "application name")
	platform := flag.String("platform", "web", "application platform")
	label := flag.String("label", "default", "api key label")
	revoke := flag.String("revoke", "", "api key id to revoke instead of seeding")
	flag.Parse()

	if *revoke == "" && (*orgName == "" || *appName == "") {
		fmt.Println("usage: seedkeys -org <name> -app <name> [-platform web] [-label default]")
		fmt.Println("       seedkeys -revoke <key-id>")
		os.Exit(1)
	}

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres automigrate failed", "error", err)
	}
	theDB := pg.DB()

	orgRepo := repos.NewOrganizationRepo(theDB, log)
	appRepo := repos.NewApplicationRepo(theDB, log)
	apiKeyRepo := repos.NewAPIKeyRepo(theDB, log)

	var keyCache redisclient.APIKeyCache
	if os.Getenv("REDIS_ADDR") != "" {
		keyCache, err = redisclient.NewAPIKeyCache(log)
		if err != nil {
			log.Fatal("Redis init failed", "error", err)
		}
		defer keyCache.Close()
	}
	authService := services.NewAuthService(theDB, log, apiKeyRepo, keyCache, os.Getenv("JWT_SECRET_KEY"), time.Hour)

	ctx := context.Background()

	if *revoke != "" {
		keyID, err := uuid.Parse(*revoke)
		if err != nil {
			log.Fatal("Invalid key id", "error", err)
		}
		if err := authService.RevokeAPIKey(ctx, nil, keyID); err != nil {
			log.Fatal("Revoke API key failed", "error", err)
		}
		fmt.Printf("revoked api key %s\n", keyID)
		return
	}

	org, err := orgRepo.Create(ctx, nil, &types.Organization{
		Name: *orgName,
		Slug: slugify(*orgName),
	})
	if err != nil {
		log.Fatal("Create organization failed", "error", err)
	}

	application, err := appRepo.Create(ctx, nil, &types.Application{
		OrganizationID: org.ID,
		Name:           *appName,
		Platform:       *platform,
	})
	if err != nil {
		log.Fatal("Create application failed", "error", err)
	}

	rawKey, key, err := authService.MintAPIKey(ctx, nil, org.ID, application.ID, *label)
	if err != nil {
		log.Fatal("Mint API key failed", "error", err)
	}

	fmt.Printf("organization: %s (%s)\n", org.Name, org.ID)
	fmt.Printf("application:  %s (%s)\n", application.Name, application.ID)
	fmt.Printf("api key id:   %s\n", key.ID)
	fmt.Printf("api key:      %s\n", rawKey)
	fmt.Println("Store the api key now; it is not recoverable later.")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
