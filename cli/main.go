// Package main provides a simple interactive CLI client for the chat API.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"
)

// Client talks to the chat REST API.
type Client struct {
	baseURL    string
	userID     string
	apiKey     string
	sessionID  string
	httpClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL, userID, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api/chatbot",
		userID:     userID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type sendResponse struct {
	SessionID   string  `json:"session_id"`
	UserMessage message `json:"user_message"`
	BotResponse message `json:"bot_response"`
	Warning     string  `json:"warning"`
}

type sessionItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Send sends content to the current session, opening one if needed.
func (c *Client) Send(ctx context.Context, content string) (*sendResponse, error) {
	body := map[string]string{"message": content}
	if c.sessionID != "" {
		body["session_id"] = c.sessionID
	}

	var resp sendResponse
	if err := c.do(ctx, http.MethodPost, "/send-message/", body, &resp); err != nil {
		return nil, err
	}
	c.sessionID = resp.SessionID
	return &resp, nil
}

// Sessions lists the caller's sessions.
func (c *Client) Sessions(ctx context.Context) ([]sessionItem, error) {
	var items []sessionItem
	if err := c.do(ctx, http.MethodGet, "/sessions/", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Summary summarizes the current session.
func (c *Client) Summary(ctx context.Context) (string, error) {
	if c.sessionID == "" {
		return "", fmt.Errorf("no active session")
	}
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/"+c.sessionID+"/summary/", nil, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("server error [%d]: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server error [%d]: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Chat API base address")
	userID := flag.String("user", "cli-user", "User ID sent as X-User-ID")
	apiKey := flag.String("api-key", "", "Bearer key, when the server requires one")
	flag.Parse()

	log.SetFlags(log.Ltime)

	client := NewClient(*addr, *userID, *apiKey)

	fmt.Printf("Chatting with %s as %s\n", *addr, *userID)
	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /new, /sessions, /summary, /quit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/new":
			client.sessionID = ""
			fmt.Println("Next message starts a new chat.")
		case "/sessions":
			items, err := client.Sessions(ctx)
			if err != nil {
				log.Printf("List error: %v", err)
				continue
			}
			for _, s := range items {
				fmt.Printf("  %s  %-40s %3d msgs  %s\n", s.ID, s.Title, s.MessageCount, s.UpdatedAt.Local().Format(time.Stamp))
			}
		case "/summary":
			summary, err := client.Summary(ctx)
			if err != nil {
				log.Printf("Summary error: %v", err)
				continue
			}
			fmt.Println(summary)
		default:
			resp, err := client.Send(ctx, input)
			if err != nil {
				log.Printf("Send error: %v", err)
				continue
			}
			fmt.Printf("\n[assistant] %s\n", resp.BotResponse.Content)
			if resp.Warning != "" {
				fmt.Printf("(warning: %s)\n", resp.Warning)
			}
		}
	}
}
