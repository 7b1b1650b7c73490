// hbctl is the operator tool for the administrative verification workflow.
// It is the only path that mutates a client record's verification fields.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"healingbuds/pkg/db"
	"healingbuds/services/gateway/internal/store"
)

const usage = "usage: hbctl client approve|reject|show|pending [flags]"

func main() {
	if len(os.Args) < 2 {
		failSummary("", usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "client":
		runClient(os.Args[2:])
	default:
		failSummary("", "unknown command")
		os.Exit(2)
	}
}

func runClient(args []string) {
	if len(args) < 1 {
		failSummary("", usage)
		os.Exit(2)
	}
	switch args[0] {
	case "approve":
		runApprove(args[1:])
	case "reject":
		runReject(args[1:])
	case "show":
		runShow(args[1:])
	case "pending":
		runPending(args[1:])
	default:
		failSummary("", usage)
		os.Exit(2)
	}
}

func connect() *store.Store {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	pool, err := db.Connect(context.Background(), dsn)
	if err != nil {
		failSummary("", "database connect failed: "+err.Error())
		os.Exit(1)
	}
	return store.New(pool)
}

func runApprove(args []string) {
	fs := flag.NewFlagSet("client approve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	clientID := fs.String("client-id", "", "upstream client id")
	kyc := fs.Bool("kyc", false, "also mark KYC verification complete")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*clientID) == "" {
		failSummary("", "--client-id is required")
		os.Exit(2)
	}

	st := connect()
	ctx := context.Background()
	rec, err := setApproval(ctx, st, *clientID, store.ApprovalVerified, *kyc)
	if err != nil {
		failSummary(*clientID, err.Error())
		os.Exit(1)
	}
	passSummary(rec)
}

func runReject(args []string) {
	fs := flag.NewFlagSet("client reject", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	clientID := fs.String("client-id", "", "upstream client id")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*clientID) == "" {
		failSummary("", "--client-id is required")
		os.Exit(2)
	}

	st := connect()
	ctx := context.Background()
	rec, err := setApproval(ctx, st, *clientID, store.ApprovalRejected, false)
	if err != nil {
		failSummary(*clientID, err.Error())
		os.Exit(1)
	}
	passSummary(rec)
}

func runShow(args []string) {
	fs := flag.NewFlagSet("client show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	clientID := fs.String("client-id", "", "upstream client id")
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(*clientID) == "" {
		failSummary("", "--client-id is required")
		os.Exit(2)
	}

	st := connect()
	rec, err := st.GetClientByExternalID(context.Background(), *clientID)
	if err != nil {
		failSummary(*clientID, err.Error())
		os.Exit(1)
	}
	passSummary(rec)
}

func runPending(args []string) {
	fs := flag.NewFlagSet("client pending", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		failSummary("", err.Error())
		os.Exit(2)
	}

	st := connect()
	rows, err := st.DB.Query(context.Background(), `
SELECT id::text, user_id, client_id, is_kyc_verified, admin_approval, created_at
FROM hb_clients
WHERE admin_approval=$1 AND superseded_at IS NULL
ORDER BY created_at ASC
`, store.ApprovalPending)
	if err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var rec store.ClientRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ClientID, &rec.IsKycVerified, &rec.AdminApproval, &rec.CreatedAt); err != nil {
			failSummary("", err.Error())
			os.Exit(1)
		}
		passSummary(rec)
	}
	if err := rows.Err(); err != nil {
		failSummary("", err.Error())
		os.Exit(1)
	}
}

func setApproval(ctx context.Context, st *store.Store, clientID, approval string, kyc bool) (store.ClientRecord, error) {
	var query string
	if kyc {
		query = `
UPDATE hb_clients
SET admin_approval=$2, is_kyc_verified=TRUE
WHERE client_id=$1 AND superseded_at IS NULL
RETURNING id::text, user_id, client_id, is_kyc_verified, admin_approval, created_at
`
	} else {
		query = `
UPDATE hb_clients
SET admin_approval=$2
WHERE client_id=$1 AND superseded_at IS NULL
RETURNING id::text, user_id, client_id, is_kyc_verified, admin_approval, created_at
`
	}
	var rec store.ClientRecord
	err := st.DB.QueryRow(ctx, query, clientID, approval).
		Scan(&rec.ID, &rec.UserID, &rec.ClientID, &rec.IsKycVerified, &rec.AdminApproval, &rec.CreatedAt)
	if err != nil {
		return store.ClientRecord{}, fmt.Errorf("client %s: %w", clientID, err)
	}
	b, _ := json.Marshal(map[string]any{"client_id": clientID, "approval": approval, "kyc": kyc})
	_ = st.RecordAuditEvent(ctx, "CLIENT_VERIFICATION_SET", rec.UserID, clientID, b)
	return rec, nil
}

func passSummary(rec store.ClientRecord) {
	fmt.Printf("{\"status\":\"PASS\",\"client_id\":%s,\"user_id\":%s,\"kyc\":%t,\"approval\":%s,\"timestamp_utc\":%s}\n",
		jsonQuote(rec.ClientID),
		jsonQuote(rec.UserID),
		rec.IsKycVerified,
		jsonQuote(rec.AdminApproval),
		jsonQuote(time.Now().UTC().Format(time.RFC3339)),
	)
}

func failSummary(clientID, reason string) {
	fmt.Printf("{\"status\":\"FAIL\",\"client_id\":%s,\"reason\":%s,\"timestamp_utc\":%s}\n",
		jsonQuote(clientID),
		jsonQuote(reason),
		jsonQuote(time.Now().UTC().Format(time.RFC3339)),
	)
}

func jsonQuote(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
