// Package mongodb implements the ticket store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-bot/database"
	"ticket-bot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	guildConfigsCollection = "guild_configs"
	ticketsCollection      = "tickets"
	ratingsCollection      = "ticket_ratings"
)

// Store implements database.Store over three collections.
type Store struct {
	client  *mongo.Client
	configs *mongo.Collection
	tickets *mongo.Collection
	ratings *mongo.Collection
}

var _ database.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := New(client, client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle.
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:  client,
		configs: db.Collection(guildConfigsCollection),
		tickets: db.Collection(ticketsCollection),
		ratings: db.Collection(ratingsCollection),
	}
}

// EnsureIndexes creates the unique indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.configs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guildId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create guild config index: %w", err)
	}

	_, err := s.tickets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "guildId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("ux_open_ticket_per_owner").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.StatusOpen)}),
		},
		{
			Keys:    bson.D{{Key: "guildId", Value: 1}, {Key: "ticketNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "channelId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "closedAt", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "deleteAfter", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create ticket indexes: %w", err)
	}

	if _, err := s.ratings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ticketId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create rating index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := s.configs.FindOne(ctx, bson.M{"guildId": guildID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config %s: %w", guildID, err)
	}
	return &cfg, nil
}

func (s *Store) UpsertGuildConfig(ctx context.Context, cfg *models.GuildConfig) (*models.GuildConfig, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"ticketChannelId":      cfg.TicketChannelID,
			"ticketCategoryId":     cfg.CategoryID,
			"logsChannelId":        cfg.LogsChannelID,
			"transcriptsChannelId": cfg.TranscriptsChannelID,
			"ratingChannelId":      cfg.RatingChannelID,
			"supportRoleId":        cfg.SupportRoleID,
			"updatedAt":            now,
		},
		"$setOnInsert": bson.M{
			"guildId":          cfg.GuildID,
			"staffRoles":       bson.A{},
			"staffMembers":     bson.A{},
			"lastTicketNumber": int64(0),
			"panelMessageId":   "",
			"createdAt":        now,
		},
	}
	_, err := s.configs.UpdateOne(ctx, bson.M{"guildId": cfg.GuildID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guild config %s: %w", cfg.GuildID, err)
	}
	return s.GetGuildConfig(ctx, cfg.GuildID)
}

func (s *Store) SetPanelMessage(ctx context.Context, guildID, messageID string) error {
	res, err := s.configs.UpdateOne(ctx,
		bson.M{"guildId": guildID},
		bson.M{"$set": bson.M{"panelMessageId": messageID, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set panel message for guild %s: %w", guildID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) SetPanelSettings(ctx context.Context, guildID string, p models.PanelSettings) error {
	res, err := s.configs.UpdateOne(ctx,
		bson.M{"guildId": guildID},
		bson.M{"$set": bson.M{"panel": p, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set panel settings for guild %s: %w", guildID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// NextTicketNumber increments the counter server-side and returns the new value.
func (s *Store) NextTicketNumber(ctx context.Context, guildID string) (int64, error) {
	var cfg models.GuildConfig
	err := s.configs.FindOneAndUpdate(ctx,
		bson.M{"guildId": guildID},
		bson.M{
			"$inc": bson.M{"lastTicketNumber": int64(1)},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, database.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ticket number for guild %s: %w", guildID, err)
	}
	return cfg.LastTicketNumber, nil
}

func (s *Store) AddStaffRole(ctx context.Context, guildID, roleID string) error {
	return s.addToSet(ctx, guildID, "staffRoles", roleID)
}

func (s *Store) RemoveStaffRole(ctx context.Context, guildID, roleID string) error {
	return s.pullFromSet(ctx, guildID, "staffRoles", roleID)
}

func (s *Store) AddStaffMember(ctx context.Context, guildID, userID string) error {
	return s.addToSet(ctx, guildID, "staffMembers", userID)
}

func (s *Store) RemoveStaffMember(ctx context.Context, guildID, userID string) error {
	return s.pullFromSet(ctx, guildID, "staffMembers", userID)
}

func (s *Store) addToSet(ctx context.Context, guildID, field, value string) error {
	res, err := s.configs.UpdateOne(ctx,
		bson.M{"guildId": guildID, field: bson.M{"$ne": value}},
		bson.M{
			"$push": bson.M{field: value},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", value, field, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return s.missingOr(ctx, guildID, database.ErrDuplicate)
}

func (s *Store) pullFromSet(ctx context.Context, guildID, field, value string) error {
	res, err := s.configs.UpdateOne(ctx,
		bson.M{"guildId": guildID, field: value},
		bson.M{
			"$pull": bson.M{field: value},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", value, field, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return s.missingOr(ctx, guildID, database.ErrConditionFailed)
}

// missingOr distinguishes an unconfigured guild from a failed set condition.
func (s *Store) missingOr(ctx context.Context, guildID string, otherwise error) error {
	n, err := s.configs.CountDocuments(ctx, bson.M{"guildId": guildID})
	if err != nil {
		return fmt.Errorf("failed to check guild config %s: %w", guildID, err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return otherwise
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	_, err := s.tickets.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return database.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert ticket %d: %w", t.TicketNumber, err)
	}
	return nil
}

func (s *Store) findTicket(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Ticket, error) {
	var t models.Ticket
	err := s.tickets.FindOne(ctx, filter, opts...).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.findTicket(ctx, bson.M{"_id": id})
}

func (s *Store) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*models.Ticket, error) {
	return s.findTicket(ctx, bson.M{"guildId": guildID, "channelId": channelID})
}

func (s *Store) FindOpenTicket(ctx context.Context, guildID, userID string) (*models.Ticket, error) {
	return s.findTicket(ctx, bson.M{"guildId": guildID, "userId": userID, "status": string(models.StatusOpen)})
}

func (s *Store) LatestClosedTicket(ctx context.Context, userID string) (*models.Ticket, error) {
	return s.findTicket(ctx,
		bson.M{"userId": userID, "status": string(models.StatusClosed)},
		options.FindOne().SetSort(bson.D{{Key: "closedAt", Value: -1}, {Key: "ticketNumber", Value: -1}}))
}

func (s *Store) AssignTicket(ctx context.Context, ticketID, expected, assignee string, at time.Time) error {
	filter := bson.M{"_id": ticketID, "status": string(models.StatusOpen)}
	if expected == "" {
		// Matches both a missing field and an explicit null.
		filter["assignedTo"] = nil
	} else {
		filter["assignedTo"] = expected
	}

	update := bson.M{"$set": bson.M{"updatedAt": at.UTC()}}
	if assignee == "" {
		update["$unset"] = bson.M{"assignedTo": ""}
	} else {
		update["$set"] = bson.M{"updatedAt": at.UTC(), "assignedTo": assignee}
	}

	res, err := s.tickets.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to assign ticket %s: %w", ticketID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrConditionFailed
	}
	return nil
}

func (s *Store) CloseTicket(ctx context.Context, ticketID, closedBy, reason string, at time.Time) error {
	res, err := s.tickets.UpdateOne(ctx,
		bson.M{"_id": ticketID, "status": string(models.StatusOpen)},
		bson.M{"$set": bson.M{
			"status":      string(models.StatusClosed),
			"closedBy":    closedBy,
			"closeReason": reason,
			"closedAt":    at.UTC(),
			"updatedAt":   at.UTC(),
		}})
	if err != nil {
		return fmt.Errorf("failed to close ticket %s: %w", ticketID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrConditionFailed
	}
	return nil
}

func (s *Store) SetDeleteAfter(ctx context.Context, ticketID string, at *time.Time) error {
	update := bson.M{"$unset": bson.M{"deleteAfter": ""}}
	if at != nil {
		update = bson.M{"$set": bson.M{"deleteAfter": at.UTC()}}
	}
	res, err := s.tickets.UpdateOne(ctx, bson.M{"_id": ticketID}, update)
	if err != nil {
		return fmt.Errorf("failed to set deleteAfter on ticket %s: %w", ticketID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) PendingDeletions(ctx context.Context, before time.Time) ([]*models.Ticket, error) {
	cur, err := s.tickets.Find(ctx,
		bson.M{"deleteAfter": bson.M{"$ne": nil, "$lte": before.UTC()}},
		options.Find().SetSort(bson.D{{Key: "deleteAfter", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending deletions: %w", err)
	}
	var tickets []*models.Ticket
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode pending deletions: %w", err)
	}
	return tickets, nil
}

func (s *Store) OpenTickets(ctx context.Context, guildID string) ([]*models.Ticket, error) {
	cur, err := s.tickets.Find(ctx,
		bson.M{"guildId": guildID, "status": string(models.StatusOpen)},
		options.Find().SetSort(bson.D{{Key: "ticketNumber", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query open tickets of guild %s: %w", guildID, err)
	}
	var tickets []*models.Ticket
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode open tickets: %w", err)
	}
	return tickets, nil
}

func (s *Store) CreateRating(ctx context.Context, r *models.TicketRating) error {
	_, err := s.ratings.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return database.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert rating for ticket %s: %w", r.TicketID, err)
	}
	return nil
}

func (s *Store) GetRatingByTicket(ctx context.Context, ticketID string) (*models.TicketRating, error) {
	var r models.TicketRating
	err := s.ratings.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating for ticket %s: %w", ticketID, err)
	}
	return &r, nil
}
