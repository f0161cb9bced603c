// Command inspect dumps the participants and messages held in a BadgerDB store.
package main

import (
	"batepapo-uol-api/domain"
	"batepapo-uol-api/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	what := flag.String("what", "all", "participants, messages or all")
	colours := flag.Bool("colours", true, "Colour message kinds")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *what == "all" || *what == "participants" {
		if err := printParticipants(db); err != nil {
			log.Fatal(err)
		}
	}
	if *what == "all" || *what == "messages" {
		if err := printMessages(db, *colours); err != nil {
			log.Fatal(err)
		}
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printParticipants(db *badger.DB) error {
	table := newTable([]string{"Name", "Joined", "Last seen"})
	err := scan(db, repositories.ParticipantPrefix, func(key []byte, v []byte) {
		var p repositories.DiskParticipant
		if err := json.Unmarshal(v, &p); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", string(key), err)
			return
		}
		table.Append([]string{p.Name, p.JoinedAt.Format("15:04:05"), p.LastSeen.Format("15:04:05")})
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func printMessages(db *badger.DB, colours bool) error {
	table := newTable([]string{"Seq", "Time", "Kind", "From", "To", "Text"})
	err := scan(db, repositories.MessagePrefix, func(key []byte, v []byte) {
		var m repositories.DiskMessage
		if err := json.Unmarshal(v, &m); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", string(key), err)
			return
		}
		kind := m.Kind
		if colours {
			kind = colourKind(domain.Kind(m.Kind))
		}
		table.Append([]string{
			fmt.Sprintf("%d", m.Seq),
			m.At.Format("15:04:05"),
			kind,
			m.From,
			m.To,
			m.Text,
		})
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func colourKind(kind domain.Kind) string {
	switch kind {
	case domain.KindStatus:
		return color.New(color.FgYellow).Render(string(kind))
	case domain.KindPrivateMessage:
		return color.New(color.FgMagenta).Render(string(kind))
	default:
		return color.New(color.FgGreen).Render(string(kind))
	}
}

func scan(db *badger.DB, prefix string, fn func(key, value []byte)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(v []byte) error {
				fn(key, v)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
