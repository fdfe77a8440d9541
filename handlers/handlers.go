package handlers

import (
	"context"
	"sync"
	"time"

	"ticket-bot/bot"
	"ticket-bot/config"
	"ticket-bot/rating"
	"ticket-bot/scanner"
	"ticket-bot/ticket"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler routes Discord interactions to the ticket and rating services.
type Handler struct {
	tickets *ticket.Service
	ratings *rating.Service
	scanner *scanner.Scanner
	logger  *zap.Logger
	opens   *userLimiter
}

// NewHandler creates the interaction handler.
func NewHandler(tickets *ticket.Service, ratings *rating.Service, scan *scanner.Scanner, cfg config.TicketsConfig, logger *zap.Logger) *Handler {
	return &Handler{
		tickets: tickets,
		ratings: ratings,
		scanner: scan,
		logger:  logger.Named("handlers"),
		opens:   newUserLimiter(cfg.OpenRate, cfg.OpenBurst),
	}
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(h.InteractionCreate)
	b.Session.AddHandler(h.ChannelDelete)

	b.Session.AddHandler(h.Ready)
}

// Ready logs the session and reconciles tickets of the guilds it serves.
func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("logged in",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	if h.scanner == nil {
		return
	}

	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		h.scanner.ScanGuilds(ctx, guildIDs)
	}()
}

// userLimiter throttles ticket creation per user. A zero interval disables it.
// Buckets idle long enough to have refilled are evicted every sweepEvery
// lookups, since a full bucket behaves like a new one.
type userLimiter struct {
	every      time.Duration
	burst      int
	idle       time.Duration
	sweepEvery int
	now        func() time.Time

	mu       sync.Mutex
	lookups  int
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(every time.Duration, burst int) *userLimiter {
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		every:      every,
		burst:      burst,
		idle:       every * time.Duration(burst),
		sweepEvery: 1000,
		now:        time.Now,
		visitors:   make(map[string]*visitor),
	}
}

func (l *userLimiter) Allow(userID string) bool {
	if l == nil || l.every <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	l.lookups++
	if l.lookups >= l.sweepEvery {
		for id, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.idle {
				delete(l.visitors, id)
			}
		}
		l.lookups = 0
	}
	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}
