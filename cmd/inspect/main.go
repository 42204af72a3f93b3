// Command inspect dumps the engine's BadgerDB keyspaces for operators.
// It opens the store read-only, so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "conv:", "Prefix to scan (conv:, msg:, unread:, user:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db flag")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	color.Bold.Printf("Scanning %q under %s\n\n", *prefix, *dbPath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				kind, detail := describe(key, val)
				table.Append([]string{key, kind, detail})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Gray.Printf("\n%d entries\n", rows)
}

// describe renders one row per keyspace. Index keys carry no value, so the
// key itself is the information.
func describe(key string, val []byte) (string, string) {
	switch {
	case strings.HasPrefix(key, "conv:"):
		var record struct {
			Name          string   `json:"name"`
			IsGroup       bool     `json:"is_group"`
			Members       []string `json:"members"`
			LastMessageID string   `json:"last_message_id"`
			NextSeq       uint64   `json:"next_seq"`
		}
		if err := json.Unmarshal(val, &record); err != nil {
			return "CONV", "unreadable record"
		}
		return "CONV", fmt.Sprintf("name=%q group=%t members=%d last=%s seq=%d",
			record.Name, record.IsGroup, len(record.Members), short(record.LastMessageID), record.NextSeq)

	case strings.HasPrefix(key, "msg:"):
		var record struct {
			SenderID      string `json:"sender_id"`
			Content       string `json:"content"`
			Type          string `json:"type"`
			CreatedAtNano int64  `json:"created_at"`
		}
		if err := json.Unmarshal(val, &record); err != nil {
			return "MSG", "unreadable record"
		}
		content := record.Content
		if len(content) > 40 {
			content = content[:40] + "..."
		}
		return "MSG", fmt.Sprintf("[%s] %s from %s: %q",
			record.Type,
			time.Unix(0, record.CreatedAtNano).UTC().Format("15:04:05"),
			short(record.SenderID), content)

	case strings.HasPrefix(key, "unread:"):
		return "UNREAD", "live marker"

	case strings.HasPrefix(key, "user:"):
		var record struct {
			Email    string `json:"email"`
			FullName string `json:"full_name"`
		}
		if err := json.Unmarshal(val, &record); err != nil {
			return "USER", string(val) // id index stores the raw email
		}
		return "USER", fmt.Sprintf("%s <%s>", record.FullName, record.Email)
	}
	return "?", ""
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
