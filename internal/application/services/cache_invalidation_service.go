package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
)

// CacheInvalidationService drops cached product entries when the pipeline
// publishes an update event, so other instances behind the same Redis see
// fresh data without waiting out the TTL.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelProductUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to product updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ProductEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent drops the product's cache entry. List and search responses are
// left to their short TTLs; invalidating them per event would stampede the
// store on every batch run.
func (s *CacheInvalidationService) handleEvent(event *entities.ProductEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("product:%s", event.ProductID)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("Warning: Failed to invalidate product cache for %s: %v", event.ProductID, err)
	}
}
