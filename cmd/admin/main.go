package main

import (
	"collegemate/backend/internal/config"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"collegemate/backend/internal/storage"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

  mutations [limit]              recent mutations, newest first
  invalidate <Type>[:id] ...     invalidate tags on every gateway instance
  selection <session_id> <domain>
  watches                        telegram chats with active watches`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("bad configuration: %v", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	var rdb *redis.Client
	// Redis потрібен лише для invalidate
	if os.Args[1] == "invalidate" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
	}
	storageSvc := storage.NewStorageService(db, rdb, nil)

	command := os.Args[1]

	switch command {
	case "mutations":
		limit := config.DefaultMutationListLimit
		if len(os.Args) > 2 {
			limit, err = strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Println("Invalid limit. Please provide an integer.")
				os.Exit(1)
			}
		}
		if err := listMutations(storageSvc, limit); err != nil {
			log.Fatalf("Error listing mutations: %v", err)
		}
	case "invalidate":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin invalidate <Type>[:id] ...")
			os.Exit(1)
		}
		tags, err := invalidate(storageSvc, os.Args[2:])
		if err != nil {
			log.Fatalf("Error publishing invalidation: %v", err)
		}
		fmt.Printf("Invalidated %s.\n", strings.Join(tags, ", "))
	case "selection":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin selection <session_id> <domain>")
			os.Exit(1)
		}
		if err := showSelection(storageSvc, os.Args[2], models.Domain(os.Args[3])); err != nil {
			log.Fatalf("Error reading selection: %v", err)
		}
	case "watches":
		if err := listWatches(storageSvc); err != nil {
			log.Fatalf("Error listing watches: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func listMutations(s storage.Storage, limit int) error {
	entries, err := s.ListMutations(limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSESSION\tENDPOINT\tSTATUS\tTAGS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.CreatedAt.Format(time.RFC3339), e.SessionID, e.Endpoint, e.Status,
			strings.Join(e.Tags, ","), e.Error)
	}
	return w.Flush()
}

// invalidate publishes the tags under an origin no gateway instance uses, so
// every instance applies them.
func invalidate(s storage.Storage, args []string) ([]string, error) {
	tags := querycache.TagStrings(querycache.ParseTags(args))
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags given")
	}
	return tags, s.PublishInvalidation(models.InvalidationEvent{Origin: "admin-cli", Tags: tags})
}

func showSelection(s storage.Storage, sessionID string, domain models.Domain) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}
	sel, err := s.GetSelection(sessionID, domain)
	if err != nil {
		return err
	}
	if sel == nil {
		fmt.Println("No selection.")
		return nil
	}
	fmt.Printf("%s %s -> %s (updated %s)\n", sel.SessionID, sel.Domain, sel.EntityID, sel.UpdatedAt.Format(time.RFC3339))
	return nil
}

func listWatches(s storage.Storage) error {
	watches, err := s.ListWatches()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAT\tLANGUAGE\tTAGS")
	for _, watch := range watches {
		fmt.Fprintf(w, "%d\t%s\t%s\n", watch.ChatID, watch.Language, strings.Join(watch.Tags, ","))
	}
	return w.Flush()
}
