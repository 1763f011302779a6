// Package session persists analysis sessions and users in Redis.
//
// A session is spread over four keys: a meta hash, the analysis blob, a file
// list and an append-only chat history list. Multi-key writes go through
// MULTI/EXEC; history appends are a single RPUSH so concurrent writers never
// lose messages.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const InitialBotMessage = "Analysis complete! Here are the key insights."

const epochTimestamp = "1970-01-01T00:00:00Z"

const maxUpdateAttempts = 3

var (
	ErrNotFound       = errors.New("session not found")
	ErrCorruptSession = errors.New("corrupt session data")
	ErrOwnerMismatch  = errors.New("session belongs to another user")
)

type Store struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewStore(log *logger.Logger, rdb goredis.UniversalClient) *Store {
	return &Store{log: log.With("service", "SessionStore"), rdb: rdb}
}

// Create persists a new session owned by userID under a fresh id.
func (s *Store) Create(ctx context.Context, analysis *domain.AnalysisResult, userID string) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, id, analysis, userID); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID persists a new session under a caller-chosen id, used when
// uploaded files were already stored under it. The meta hash, blob, file
// list, seeded history and the owner's index entry are written in one
// transaction.
func (s *Store) CreateWithID(ctx context.Context, id string, analysis *domain.AnalysisResult, userID string) (err error) {
	defer func() { observability.Current().ObserveSessionOp("create", err) }()

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("create session: id is required")
	}
	if err := analysis.Validate(); err != nil {
		return err
	}
	owner := strings.TrimSpace(analysis.Metadata.UserID)
	if owner == "" {
		owner = strings.TrimSpace(userID)
	}
	if owner == "" {
		return fmt.Errorf("create session: owner is required")
	}

	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	seed, err := json.Marshal(domain.ChatMessage{Role: domain.RoleBot, Content: InitialBotMessage})
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(id), metaFields(analysis, owner))
		pipe.Set(ctx, analysisKey(id), blob, 0)
		if len(analysis.Metadata.FilePaths) > 0 {
			pipe.RPush(ctx, filesKey(id), toArgs(analysis.Metadata.FilePaths)...)
		}
		pipe.Del(ctx, historyKey(id))
		pipe.RPush(ctx, historyKey(id), seed)
		pipe.SAdd(ctx, userSessionsKey(owner), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.log.Info("Session created", "session_id", id, "user_id", owner)
	return nil
}

// Get loads the full session. A missing analysis blob means not found, even
// if other keys of the session survive.
func (s *Store) Get(ctx context.Context, id string) (sess *domain.Session, err error) {
	defer func() { observability.Current().ObserveSessionOp("get", err) }()

	raw, err := s.rdb.Get(ctx, analysisKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var analysis domain.AnalysisResult
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, fmt.Errorf("%w: analysis blob: %v", ErrCorruptSession, err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	var (
		histCmd  *goredis.StringSliceCmd
		filesCmd *goredis.StringSliceCmd
		metaCmd  *goredis.MapStringStringCmd
	)
	_, err = s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		histCmd = pipe.LRange(ctx, historyKey(id), 0, -1)
		filesCmd = pipe.LRange(ctx, filesKey(id), 0, -1)
		metaCmd = pipe.HGetAll(ctx, metaKey(id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	history := make([]domain.ChatMessage, 0, len(histCmd.Val()))
	for i, item := range histCmd.Val() {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("%w: history entry %d: %v", ErrCorruptSession, i, err)
		}
		history = append(history, m)
	}

	meta := parseMeta(metaCmd.Val())
	if len(metaCmd.Val()) == 0 {
		meta = metaFromAnalysis(&analysis, analysis.Metadata.UserID)
	}

	files := filesCmd.Val()
	if files == nil {
		files = []string{}
	}
	return &domain.Session{
		ID:          id,
		Metadata:    meta,
		Analysis:    analysis,
		ChatHistory: history,
		FilePaths:   files,
	}, nil
}

// Update replaces the meta hash and analysis blob of an existing session.
// Chat history is left untouched and file paths are only ever appended.
// The stored owner is read and the write applied under WATCH; an analysis
// carrying a different user_id is rejected. Concurrent updates of one id are
// last-write-wins.
func (s *Store) Update(ctx context.Context, id string, analysis *domain.AnalysisResult) (err error) {
	defer func() { observability.Current().ObserveSessionOp("update", err) }()

	if err := analysis.Validate(); err != nil {
		return err
	}
	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	update := func(tx *goredis.Tx) error {
		owner, err := s.storedOwner(ctx, tx, id)
		if err != nil {
			return err
		}
		if uid := strings.TrimSpace(analysis.Metadata.UserID); uid != "" && uid != owner {
			return ErrOwnerMismatch
		}
		existing, err := tx.LRange(ctx, filesKey(id), 0, -1).Result()
		if err != nil {
			return err
		}
		newFiles := missing(existing, analysis.Metadata.FilePaths)

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, metaKey(id), metaFields(analysis, owner))
			pipe.Set(ctx, analysisKey(id), blob, 0)
			if len(newFiles) > 0 {
				pipe.RPush(ctx, filesKey(id), toArgs(newFiles)...)
			}
			pipe.SAdd(ctx, userSessionsKey(owner), id)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.rdb.Watch(ctx, update, metaKey(id), analysisKey(id), filesKey(id))
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOwnerMismatch), errors.Is(err, ErrCorruptSession):
		return err
	case err != nil:
		return fmt.Errorf("update session: %w", err)
	}
	s.log.Info("Session updated", "session_id", id)
	return nil
}

// storedOwner resolves the owner of an existing session. The analysis blob
// decides existence; the meta hash names the owner, falling back to the
// blob's own metadata.
func (s *Store) storedOwner(ctx context.Context, tx *goredis.Tx, id string) (string, error) {
	raw, err := tx.Get(ctx, analysisKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	owner, err := tx.HGet(ctx, metaKey(id), "user_id").Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "", err
	}
	if owner = strings.TrimSpace(owner); owner != "" {
		return owner, nil
	}
	var stored struct {
		Metadata struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return "", fmt.Errorf("%w: analysis blob: %v", ErrCorruptSession, err)
	}
	if owner = strings.TrimSpace(stored.Metadata.UserID); owner == "" {
		return "", fmt.Errorf("%w: session %s has no owner", ErrCorruptSession, id)
	}
	return owner, nil
}

// AppendMessage adds one message to the end of the session history.
func (s *Store) AppendMessage(ctx context.Context, id string, msg domain.ChatMessage) (err error) {
	defer func() { observability.Current().ObserveSessionOp("append", err) }()

	if !msg.Valid() {
		return fmt.Errorf("invalid chat message: role=%q", msg.Role)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, historyKey(id), raw).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListForUser returns the user's sessions, newest first. Only meta hashes
// are read; ids whose meta is gone are skipped.
func (s *Store) ListForUser(ctx context.Context, userID string) (out []domain.SessionSummary, err error) {
	defer func() { observability.Current().ObserveSessionOp("list", err) }()

	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out = make([]domain.SessionSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, metaKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		m := parseMeta(fields)
		out = append(out, domain.SessionSummary{
			ID:        id,
			Persona:   m.Persona,
			Job:       m.JobToBeDone,
			Timestamp: m.ProcessingTimestamp,
			DocCount:  m.DocCount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := sortTimestamp(out[i].Timestamp), sortTimestamp(out[j].Timestamp)
		if ti != tj {
			return ti > tj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sortTimestamp(ts string) string {
	if strings.TrimSpace(ts) == "" {
		return epochTimestamp
	}
	return ts
}

func metaFields(a *domain.AnalysisResult, owner string) map[string]any {
	m := metaFromAnalysis(a, owner)
	return map[string]any{
		"persona":              m.Persona,
		"job_to_be_done":       m.JobToBeDone,
		"processing_timestamp": m.ProcessingTimestamp,
		"language":             m.Language,
		"doc_count":            m.DocCount,
		"user_id":              m.UserID,
	}
}

func metaFromAnalysis(a *domain.AnalysisResult, owner string) domain.SessionMeta {
	lang := a.Metadata.Language
	if lang == "" {
		lang = "en"
	}
	return domain.SessionMeta{
		Persona:             a.Metadata.Persona,
		JobToBeDone:         a.Metadata.JobToBeDone,
		ProcessingTimestamp: a.Metadata.ProcessingTimestamp,
		Language:            lang,
		DocCount:            len(a.Metadata.InputDocuments),
		UserID:              owner,
	}
}

func parseMeta(fields map[string]string) domain.SessionMeta {
	n, _ := strconv.Atoi(fields["doc_count"])
	return domain.SessionMeta{
		Persona:             fields["persona"],
		JobToBeDone:         fields["job_to_be_done"],
		ProcessingTimestamp: fields["processing_timestamp"],
		Language:            fields["language"],
		DocCount:            n,
		UserID:              fields["user_id"],
	}
}

func missing(have, want []string) []string {
	seen := make(map[string]struct{}, len(have))
	for _, h := range have {
		seen[h] = struct{}{}
	}
	var out []string
	for _, w := range want {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
