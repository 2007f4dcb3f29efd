package telegram

import (
	"collegemate/backend/internal/config"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"collegemate/backend/internal/session"
	"sort"
	"strconv"
	"sync"
)

// Client is a chat watching one or more domains. It is registered with the
// hub like any websocket and reacts to invalidation events only.
type Client struct {
	ChatID  int64
	Session *session.Session
	Send    chan models.StreamEvent

	notify func(chatID int64, lang, domain string)

	mu       sync.Mutex
	domains  map[string]bool
	pending  map[string]bool
	language string
	closed   bool
	once     sync.Once

	// wake signals the notifier that pending is non-empty.
	wake chan struct{}
}

func newClient(chatID int64, s *session.Session, lang string, notify func(int64, string, string)) *Client {
	return &Client{
		ChatID:   chatID,
		Session:  s,
		Send:     make(chan models.StreamEvent, 16),
		notify:   notify,
		domains:  make(map[string]bool),
		pending:  make(map[string]bool),
		language: lang,
		wake:     make(chan struct{}, 1),
	}
}

func (c *Client) GetID() string                             { return "tg-" + strconv.FormatInt(c.ChatID, 10) }
func (c *Client) GetSession() *session.Session              { return c.Session }
func (c *Client) GetSendChannel() chan<- models.StreamEvent { return c.Send }

func (c *Client) Run() {
	go c.writePump()
	go c.notifyLoop()
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.Send)
	})
}

// isClosed reports whether the hub let go of the client, e.g. after its
// buffer filled up.
func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// watched returns the domains the client follows.
func (c *Client) watched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (c *Client) watch(domain string) {
	c.mu.Lock()
	c.domains[domain] = true
	c.mu.Unlock()
}

func (c *Client) setLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
}

// record is the persisted form of the watch.
func (c *Client) record() *models.TelegramWatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &models.TelegramWatch{ChatID: c.ChatID, Language: c.language}
	for d := range c.domains {
		w.Tags = append(w.Tags, config.DomainTags[d])
	}
	sort.Strings(w.Tags)
	return w
}

// changed returns the watched domains that tags announce a change in, at most
// once each.
func (c *Client) changed(tags []string) (domains []string, lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	for _, s := range tags {
		typ := querycache.ParseTag(s).Type
		for d := range c.domains {
			if config.DomainTags[d] == typ && !seen[d] {
				seen[d] = true
				domains = append(domains, d)
			}
		}
	}
	sort.Strings(domains)
	return domains, c.language
}

// writePump only records which domains changed so it never blocks the hub;
// the refetch and the message happen on notifyLoop. Changes that pile up while
// a refetch runs collapse into one message per domain.
func (c *Client) writePump() {
	defer close(c.wake)
	for ev := range c.Send {
		if ev.Type != "invalidated" {
			continue
		}
		domains, _ := c.changed(ev.Tags)
		if len(domains) == 0 {
			continue
		}
		c.mu.Lock()
		for _, d := range domains {
			c.pending[d] = true
		}
		c.mu.Unlock()
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (c *Client) notifyLoop() {
	for range c.wake {
		for {
			domain, lang, ok := c.takePending()
			if !ok {
				break
			}
			c.notify(c.ChatID, lang, domain)
		}
	}
}

func (c *Client) takePending() (domain, lang string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(c.pending))
	for d := range c.pending {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	delete(c.pending, keys[0])
	return keys[0], c.language, true
}
