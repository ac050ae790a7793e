//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the loan flow.
//
// Usage:
//
//	ADMIN_EMAIL=<email> ADMIN_PASSWORD=<pw> go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<id>  MEMBER_IDS=<id1>,<id2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Logs in once and fires N goroutines (one per member) all borrowing the same book simultaneously.
//  2. Prints how many loans were created vs. rejected as out of stock or busy.
//  3. Reads the book back and checks that stock went down by exactly the number of created loans.
//
// Prerequisites:
//   - Server must be running with API_URL pointing at the library API.
//   - The book and the members must exist upstream.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type loanResult struct {
	MemberID   string
	StatusCode int
	Message    string
	Err        error
}

type book struct {
	ID    int64  `json:"id"`
	Title string `json:"judul"`
	Stock int64  `json:"stok"`
}

var client = &http.Client{Timeout: 30 * time.Second}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var memberIDs []string
	if env := os.Getenv("MEMBER_IDS"); env != "" {
		memberIDs = strings.Split(env, ",")
	}

	// Support positional args: script <book_id> [member_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		memberIDs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<id> MEMBER_IDS=<m1,m2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]")
	}
	if len(memberIDs) == 0 {
		log.Fatal("At least one member ID must be provided via MEMBER_IDS env or positional args")
	}

	token, err := login(serverAddr, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"))
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	before, err := findBook(serverAddr, token, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Printf("=== Library Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Book    : %s (%q, stock %d)\n", bookID, before.Title, before.Stock)
	fmt.Printf("Members : %d\n\n", len(memberIDs))

	results := make([]loanResult, len(memberIDs))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, mid := range memberIDs {
		wg.Add(1)
		go func(idx int, memberID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptLoan(serverAddr, token, bookID, strings.TrimSpace(memberID))
		}(i, mid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var created, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] member=%-8s err=%v\n", r.MemberID, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [LOAN] member=%-8s status=%d %s\n", r.MemberID, r.StatusCode, r.Message)
		case r.StatusCode == http.StatusConflict:
			rejected++
			fmt.Printf("  [BUSY] member=%-8s status=%d %s\n", r.MemberID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] member=%-8s status=%d %s\n", r.MemberID, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Loans created : %d\n", created)
	fmt.Printf("Rejected      : %d\n", rejected)
	fmt.Printf("Failures      : %d\n", failures)
	fmt.Printf("Total         : %d\n\n", len(memberIDs))

	after, err := findBook(serverAddr, token, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Println("--- Invariant Check ---")
	fmt.Printf("Stock before %d, after %d, loans created %d\n", before.Stock, after.Stock, created)
	ok := after.Stock >= 0 && before.Stock-after.Stock == int64(created)
	if !ok {
		fmt.Println("[FAIL] stock does not match the number of created loans")
		os.Exit(1)
	}
	fmt.Println("[ OK ] stock never went negative and matches the created loans")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
}

func login(serverAddr, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(serverAddr+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error)
	}
	return out.Token, nil
}

// findBook pages through GET /api/books looking for bookID.
func findBook(serverAddr, token, bookID string) (*book, error) {
	want, err := strconv.ParseInt(bookID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("book id %q: %w", bookID, err)
	}
	for page := 1; ; page++ {
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/books?per_page=100&page=%d", serverAddr, page), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		var out struct {
			Data       []book `json:"data"`
			TotalPages int    `json:"total_pages"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		for _, b := range out.Data {
			if b.ID == want {
				return &b, nil
			}
		}
		if page >= out.TotalPages {
			return nil, fmt.Errorf("book %s not found", bookID)
		}
	}
}

// attemptLoan sends POST /api/loans for the given member and reads the
// message or error field.
func attemptLoan(serverAddr, token, bookID, memberID string) loanResult {
	body := fmt.Sprintf(`{"id_buku":%q,"id_member":%q}`, bookID, memberID)
	req, _ := http.NewRequest(http.MethodPost, serverAddr+"/api/loans", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return loanResult{MemberID: memberID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return loanResult{MemberID: memberID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	msg, _ := parsed["message"].(string)
	if e, ok := parsed["error"].(string); ok {
		msg = e
	}
	return loanResult{MemberID: memberID, StatusCode: resp.StatusCode, Message: msg}
}
