package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/config"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/ratelimit"
	"chatlounge/backend/internal/realtime"
	"chatlounge/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: admin <command> [args]

Commands:
  sweep                        end idle random chat sessions now
  kick <identity_id>           remove an identity from the queue and end its session
  unblock <address>            lift an anonymous address block
  token <identity_id> <name> [staff]
                               issue an access token`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	cfg.ConfigureLogger(logrus.StandardLogger())
	ctx := context.Background()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "sweep":
		chat := randomChat(cfg)
		rdb := redis.NewClient(cfg.RedisOptions())
		defer rdb.Close()
		// Стан розсилається через relay тим серверам, де сидять учасники.
		hub := chathub.NewManagerService(chathub.NewRelay(rdb, cfg.RedisKeyPrefix+"broadcast"))
		realtime.NewBroadcaster(hub, chat, nil)
		n, err := chat.Keeper.Sweep(ctx)
		if err != nil {
			logrus.Fatalf("Error sweeping idle sessions: %v", err)
		}
		fmt.Printf("Expired %d idle sessions.\n", n)
	case "kick":
		if len(args) != 1 {
			fmt.Println("Usage: admin kick <identity_id>")
			os.Exit(1)
		}
		if err := randomChat(cfg).Evict(ctx, args[0]); err != nil {
			logrus.Fatalf("Error kicking %s: %v", args[0], err)
		}
		fmt.Printf("Identity %s has been removed from random chat.\n", args[0])
	case "unblock":
		if len(args) != 1 {
			fmt.Println("Usage: admin unblock <address>")
			os.Exit(1)
		}
		rdb := redis.NewClient(cfg.RedisOptions())
		defer rdb.Close()
		if err := ratelimit.NewBlocker(rdb, cfg.RedisKeyPrefix).Unblock(ctx, args[0]); err != nil {
			logrus.Fatalf("Error unblocking %s: %v", args[0], err)
		}
		fmt.Printf("Address %s has been unblocked.\n", args[0])
	case "token":
		if len(args) < 2 || len(args) > 3 {
			fmt.Println("Usage: admin token <identity_id> <name> [staff]")
			os.Exit(1)
		}
		ident := identity.Identity{ID: args[0], DisplayName: args[1], IsStaff: len(args) == 3 && args[2] == "staff"}
		token, err := identity.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer).Issue(ident)
		if err != nil {
			logrus.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func randomChat(cfg *config.Config) *randomchat.Service {
	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	return randomchat.NewService(storage.NewStorageService(db), randomchat.NewRandomPicker(), cfg.IdleTimeout, time.Now)
}
