// chatcli is the terminal chat client. It keeps a local optimistic copy of
// the conversation and reconciles it against the server's canonical history
// after every round trip.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"minichat/internal/models"
)

const tailSize = 10

type client struct {
	baseURL string
	http    *http.Client
	token   string

	// Session-cached reference data and local reactive state.
	models   []models.Model
	selected *models.Model
	history  []models.Message
	pending  bool
	pinned   bool
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8090", "server base URL")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	register := flag.Bool("register", false, "create the account before logging in")
	flag.Parse()

	if *user == "" || *pass == "" {
		fmt.Fprintln(os.Stderr, "usage: chatcli -user <name> -pass <password> [-register] [-addr URL]")
		os.Exit(1)
	}

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
		pinned:  true,
	}

	if *register {
		if err := c.register(*user, *pass); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := c.login(*user, *pass); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	if err := c.fetchModels(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch models: %v\n", err)
		os.Exit(1)
	}
	if err := c.refetchHistory(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch history: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Signed in as %s. Model: %s\n", *user, c.selected.Tag)
	fmt.Println("Commands: /models, /model <tag>, /history [n], /latest, /quit")
	c.renderTail()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !c.runCommand(line) {
				return
			}
			continue
		}
		c.send(line)
	}
}

func (c *client) runCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/models":
		for _, m := range c.models {
			marker := " "
			if c.selected != nil && m.ID == c.selected.ID {
				marker = "*"
			}
			fmt.Printf(" %s %s (%s)\n", marker, m.Tag, m.Name)
		}
	case "/model":
		if len(fields) < 2 {
			fmt.Println("usage: /model <tag>")
			break
		}
		if m := c.findModel(fields[1]); m != nil {
			c.selected = m
			fmt.Printf("model set to %s\n", m.Tag)
		} else {
			fmt.Printf("unknown model %q, try /models\n", fields[1])
		}
	case "/history":
		n := len(c.history)
		if len(fields) > 1 {
			if parsed, err := strconv.Atoi(fields[1]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		// Scrolling back unpins the view from the newest message.
		c.pinned = false
		c.render(n)
		fmt.Println("(viewing history; /latest to jump to newest)")
	case "/latest":
		c.pinned = true
		c.renderTail()
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return true
}

// send runs one optimistic round trip: local user message immediately,
// input disabled until the reply lands, then reconcile with the canonical
// history so temporary entries pick up real ids and timestamps.
func (c *client) send(prompt string) {
	if c.pending {
		fmt.Println("a send is already in flight")
		return
	}
	if c.selected == nil {
		fmt.Println("no model selected, try /models")
		return
	}
	c.pending = true
	defer func() { c.pending = false }()

	c.appendLocal(models.RoleUser, prompt, "")
	c.renderTail()
	fmt.Println("...")

	var resp struct {
		Reply string `json:"reply"`
	}
	err := c.postJSON("/api/chat/send", map[string]any{
		"prompt":    prompt,
		"model_id":  c.selected.ID,
		"model_tag": c.selected.Tag,
	}, &resp)
	if err != nil {
		fmt.Printf("!! send failed: %v\n", err)
		// Drop optimistic entries that were never persisted.
		if rerr := c.refetchHistory(); rerr != nil {
			fmt.Printf("!! refresh failed: %v\n", rerr)
		}
		c.renderTail()
		return
	}

	c.appendLocal(models.RoleAssistant, resp.Reply, c.selected.Tag)
	c.renderTail()
	if err := c.refetchHistory(); err != nil {
		fmt.Printf("!! refresh failed: %v\n", err)
	}
}

// appendLocal adds a synthesized message with a temporary id. Temporary ids
// are never durable; the next refetch replaces them wholesale.
func (c *client) appendLocal(role models.Role, content, tag string) {
	c.history = append(c.history, models.Message{
		ID:        -int64(len(c.history) + 1),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		ModelTag:  tag,
	})
}

func (c *client) renderTail() {
	if !c.pinned {
		return
	}
	c.render(tailSize)
}

func (c *client) render(n int) {
	msgs := c.history
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	for _, m := range msgs {
		label := "you"
		if m.Role == models.RoleAssistant {
			label = m.ModelTag
			if label == "" {
				label = "assistant"
			}
		}
		fmt.Printf("[%s] %s\n", label, m.Content)
	}
}

func (c *client) findModel(tag string) *models.Model {
	for i := range c.models {
		if c.models[i].Tag == tag {
			return &c.models[i]
		}
	}
	return nil
}

func (c *client) register(user, pass string) error {
	return c.postJSON("/api/users/register", map[string]string{
		"username": user,
		"password": pass,
	}, nil)
}

func (c *client) login(user, pass string) error {
	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	if err := c.postJSON("/api/users/login", map[string]string{
		"username": user,
		"password": pass,
	}, &resp); err != nil {
		return err
	}
	if resp.AuthToken == "" {
		return fmt.Errorf("no token in login response")
	}
	c.token = resp.AuthToken
	return nil
}

func (c *client) fetchModels() error {
	var resp struct {
		Models []models.Model `json:"models"`
	}
	if err := c.getJSON("/api/models", &resp); err != nil {
		return err
	}
	if len(resp.Models) == 0 {
		return fmt.Errorf("server returned no models")
	}
	c.models = resp.Models
	if c.selected == nil {
		c.selected = &c.models[0]
	}
	return nil
}

func (c *client) refetchHistory() error {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.getJSON("/api/chat/history", &resp); err != nil {
		return err
	}
	c.history = resp.Messages
	return nil
}

func (c *client) postJSON(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
