package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notification_hub/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the notification business logic. It is the only writer to the Store.
type Service interface {
	List(ctx context.Context, recipient string) ([]Notification, error)
	// Create validates and returns immediately; persistence and publish happen in
	// the background. The result means "accepted", not "stored".
	Create(ctx context.Context, recipient string, req CreateRequest) (*Notification, error)
	DeleteOne(ctx context.Context, recipient, id string) (*DeleteResult, error)
	DeleteAll(ctx context.Context, recipient string) (*DeleteAllResult, error)
	MarkRead(ctx context.Context, recipient, id string) (*MarkReadResult, error)
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	// Subscribe attaches to the recipient's channel and the global channel.
	Subscribe(ctx context.Context, recipient string) (Subscription, error)
	Ping(ctx context.Context) error
	// Wait blocks until in-flight background writes finish or ctx ends.
	Wait(ctx context.Context) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	store        Store
	ttl          time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
	locks        *keyLock
	inflight     sync.WaitGroup
	now          func() time.Time
}

// NewService creates a new notification service.
func NewService(store Store, cfg *config.Config, logger *zap.Logger) Service {
	return newService(store, cfg, logger)
}

func newService(store Store, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		store:        store,
		ttl:          cfg.NotificationTTL,
		writeTimeout: cfg.WriteBehindTimeout,
		logger:       logger.Named("NotificationService"),
		locks:        newKeyLock(),
		now:          time.Now,
	}
}

// List fetches the personal and global lists concurrently and merges them.
func (s *ServiceImplementation) List(ctx context.Context, recipient string) ([]Notification, error) {
	var (
		wg                   sync.WaitGroup
		personal, global     []Notification
		personalErr, globErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		personal, personalErr = s.readList(ctx, personalListKey(recipient))
	}()
	go func() {
		defer wg.Done()
		global, globErr = s.readList(ctx, globalListKey)
	}()
	wg.Wait()

	if personalErr != nil {
		return nil, personalErr
	}
	if globErr != nil {
		return nil, globErr
	}
	return Merge(personal, global), nil
}

// Create validates req, fills defaults and hands the write to a detached goroutine.
func (s *ServiceImplementation) Create(ctx context.Context, recipient string, req CreateRequest) (*Notification, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	n := Notification{
		ID:       req.ID,
		Read:     req.Read,
		Text:     req.Text,
		Task:     req.Task,
		Variant:  req.Variant,
		IsGlobal: req.IsGlobal,
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if req.CreatedAt != nil {
		n.CreatedAt = *req.CreatedAt
	} else {
		n.CreatedAt = s.now().UnixMilli()
	}

	listKey, channel := personalListKey(recipient), personalChannel(recipient)
	if n.IsGlobal {
		listKey, channel = globalListKey, globalChannel
	}

	// The request context is about to end; the write must outlive it.
	bgCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		writeCtx, cancel := context.WithTimeout(bgCtx, s.writeTimeout)
		defer cancel()
		s.persist(writeCtx, listKey, channel, n)
	}()

	return &n, nil
}

// persist runs dedup, push, expire, publish. Failures are logged only: the
// producer already has its response.
func (s *ServiceImplementation) persist(ctx context.Context, listKey, channel string, n Notification) {
	log := s.logger.With(zap.String("notification_id", n.ID), zap.String("list", listKey))

	unlock := s.locks.Lock(listKey)
	defer unlock()

	existing, err := s.readList(ctx, listKey)
	if err != nil {
		log.Error("Write-behind dedup scan failed", zap.Error(err))
		return
	}
	for _, e := range existing {
		if e.ID == n.ID {
			log.Debug("Duplicate notification id, skipping write")
			return
		}
	}

	payload, err := n.encode()
	if err != nil {
		log.Error("Write-behind encode failed", zap.Error(err))
		return
	}
	if err := s.store.PushFront(ctx, listKey, payload); err != nil {
		log.Error("Write-behind push failed", zap.Error(err))
		return
	}
	if err := s.store.Expire(ctx, listKey, s.ttl); err != nil {
		// TTL is re-applied on the next write to this list.
		log.Warn("Write-behind expire failed", zap.Error(err))
	}
	if err := s.store.Publish(ctx, channel, payload); err != nil {
		log.Error("Write-behind publish failed; clients will catch up on their next poll", zap.Error(err))
		return
	}
	log.Debug("Notification stored and published", zap.String("channel", channel))
}

// DeleteOne removes id from the personal list and masks it if it is global.
// An existing mask is left in place, so repeating the call changes nothing.
func (s *ServiceImplementation) DeleteOne(ctx context.Context, recipient, id string) (*DeleteResult, error) {
	if id == "" {
		return nil, &ValidationError{Fields: map[string]string{"id": "The id field is required."}}
	}
	key := personalListKey(recipient)
	unlock := s.locks.Lock(key)
	defer unlock()

	result := &DeleteResult{ID: id}

	removed, masked, err := s.removeByID(ctx, key, id)
	if err != nil {
		return nil, err
	}
	result.PersonalDeleted = removed > 0

	global, err := s.readList(ctx, globalListKey)
	if err != nil {
		return nil, err
	}
	for _, g := range global {
		if g.ID != id {
			continue
		}
		if !masked {
			if err := s.pushCopies(ctx, key, []Notification{g.ReadCopy()}); err != nil {
				return nil, err
			}
		}
		result.GlobalMasked = true
		break
	}

	s.logger.Debug("DeleteOne",
		zap.String("recipient", recipient),
		zap.String("notification_id", id),
		zap.Bool("personal_deleted", result.PersonalDeleted),
		zap.Bool("global_masked", result.GlobalMasked),
	)
	return result, nil
}

// DeleteAll drops the personal list and masks every global entry for recipient.
func (s *ServiceImplementation) DeleteAll(ctx context.Context, recipient string) (*DeleteAllResult, error) {
	key := personalListKey(recipient)
	unlock := s.locks.Lock(key)
	defer unlock()

	deleted, err := s.store.DeleteKey(ctx, key)
	if err != nil {
		return nil, err
	}

	global, err := s.readList(ctx, globalListKey)
	if err != nil {
		return nil, err
	}
	copies := make([]Notification, 0, len(global))
	for _, g := range global {
		copies = append(copies, g.ReadCopy())
	}
	if err := s.pushCopies(ctx, key, copies); err != nil {
		return nil, err
	}

	return &DeleteAllResult{PersonalDeleted: deleted, GlobalMasked: int64(len(copies))}, nil
}

// MarkRead sets read on id for recipient. Personal entries are replaced by a
// read copy; global entries get a personalized read copy.
func (s *ServiceImplementation) MarkRead(ctx context.Context, recipient, id string) (*MarkReadResult, error) {
	if id == "" {
		return nil, &ValidationError{Fields: map[string]string{"id": "The id field is required."}}
	}
	key := personalListKey(recipient)
	unlock := s.locks.Lock(key)
	defer unlock()

	result := &MarkReadResult{ID: id}

	raws, err := s.store.Range(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		n, err := decode(raw)
		if err != nil || n.ID != id {
			continue
		}
		if n.Read {
			return result, nil
		}
		// The read copy goes in before the original leaves; List collapses the pair.
		if err := s.pushCopies(ctx, key, []Notification{n.ReadCopy()}); err != nil {
			return nil, err
		}
		if _, err := s.store.Remove(ctx, key, raw); err != nil {
			return nil, err
		}
		result.Updated = true
		return result, nil
	}

	global, err := s.readList(ctx, globalListKey)
	if err != nil {
		return nil, err
	}
	for _, g := range global {
		if g.ID == id {
			if err := s.pushCopies(ctx, key, []Notification{g.ReadCopy()}); err != nil {
				return nil, err
			}
			result.Updated = true
			break
		}
	}
	return result, nil
}

// MarkAllRead marks every unread entry visible to recipient and returns how many changed.
func (s *ServiceImplementation) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	key := personalListKey(recipient)
	unlock := s.locks.Lock(key)
	defer unlock()

	raws, err := s.store.Range(ctx, key)
	if err != nil {
		return 0, err
	}
	var (
		copies    []Notification
		originals []string
	)
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		n, err := decode(raw)
		if err != nil {
			continue
		}
		seen[n.ID] = true
		if n.Read {
			continue
		}
		originals = append(originals, raw)
		copies = append(copies, n.ReadCopy())
	}

	global, err := s.readList(ctx, globalListKey)
	if err != nil {
		return 0, err
	}
	for _, g := range global {
		if !seen[g.ID] && !g.Read {
			seen[g.ID] = true
			copies = append(copies, g.ReadCopy())
		}
	}

	if err := s.pushCopies(ctx, key, copies); err != nil {
		return 0, err
	}
	for _, raw := range originals {
		if _, err := s.store.Remove(ctx, key, raw); err != nil {
			return 0, err
		}
	}
	return int64(len(copies)), nil
}

func (s *ServiceImplementation) Subscribe(ctx context.Context, recipient string) (Subscription, error) {
	return s.store.Subscribe(ctx, personalChannel(recipient), globalChannel)
}

func (s *ServiceImplementation) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ServiceImplementation) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background writes: %w", ctx.Err())
	}
}

// readList ranges key and parses each entry; malformed entries are dropped.
func (s *ServiceImplementation) readList(ctx context.Context, key string) ([]Notification, error) {
	raws, err := s.store.Range(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raws))
	for _, raw := range raws {
		n, err := decode(raw)
		if err != nil {
			s.logger.Warn("Dropping malformed list entry", zap.String("list", key), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// removeByID removes the personal entries in key whose id matches and reports
// how many were removed. Read copies of global entries are masks and stay; masked
// reports whether one exists.
func (s *ServiceImplementation) removeByID(ctx context.Context, key, id string) (removed int64, masked bool, err error) {
	raws, err := s.store.Range(ctx, key)
	if err != nil {
		return 0, false, err
	}
	for _, raw := range raws {
		n, err := decode(raw)
		if err != nil || n.ID != id {
			continue
		}
		if n.IsGlobal && n.Read {
			masked = true
			continue
		}
		count, err := s.store.Remove(ctx, key, raw)
		if err != nil {
			return removed, masked, err
		}
		removed += count
	}
	return removed, masked, nil
}

// pushCopies prepends items in reverse so the list keeps their order, then refreshes the TTL once.
func (s *ServiceImplementation) pushCopies(ctx context.Context, key string, items []Notification) error {
	if len(items) == 0 {
		return nil
	}
	for i := len(items) - 1; i >= 0; i-- {
		payload, err := items[i].encode()
		if err != nil {
			return err
		}
		if err := s.store.PushFront(ctx, key, payload); err != nil {
			return err
		}
	}
	return s.store.Expire(ctx, key, s.ttl)
}
