package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
)

// NewMemoryStores 创建内存存储集合，供测试与本地运行使用
func NewMemoryStores(policy Policy) *Stores {
	s := &memoryState{
		requests:    make(map[string]*entity.ServiceRequest),
		offers:      make(map[string][]*entity.Offer),
		evaluations: make(map[string]*entity.Evaluation),
	}
	return &Stores{
		Request:     &memoryRequestStore{state: s},
		Offer:       &memoryOfferStore{state: s, policy: policy},
		Evaluation:  &memoryEvaluationStore{state: s},
		ActivityLog: &memoryActivityLogStore{state: s},
	}
}

// memoryState 单把互斥锁覆盖全部集合，保证跨表操作的原子性
type memoryState struct {
	mu          sync.Mutex
	requests    map[string]*entity.ServiceRequest
	offers      map[string][]*entity.Offer
	evaluations map[string]*entity.Evaluation
	logs        []entity.ActivityLog
	codeSeq     int
}

func copyRequest(req *entity.ServiceRequest) *entity.ServiceRequest {
	cp := *req
	return &cp
}

type memoryRequestStore struct {
	state *memoryState
}

func (m *memoryRequestStore) Create(ctx context.Context, req *entity.ServiceRequest) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	m.state.requests[req.ID] = copyRequest(req)
	return nil
}

func (m *memoryRequestStore) FindByID(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	req, ok := m.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRequest(req), nil
}

func (m *memoryRequestStore) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceRequest, int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	var matched []entity.ServiceRequest
	for _, req := range m.state.requests {
		if status := filters["status"]; status != "" && req.Status != status {
			continue
		}
		if reqType := filters["type"]; reqType != "" && req.Type != reqType {
			continue
		}
		if createdBy := filters["created_by"]; createdBy != "" && req.CreatedBy != createdBy {
			continue
		}
		if search := filters["search"]; search != "" {
			s := strings.ToLower(search)
			if !strings.Contains(strings.ToLower(req.Title), s) &&
				!strings.Contains(strings.ToLower(req.Code), s) {
				continue
			}
		}
		matched = append(matched, *copyRequest(req))
	}
	// 创建时间相同者按ID定序，保证跨页遍历不重不漏
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []entity.ServiceRequest{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memoryRequestStore) SaveDraft(ctx context.Context, req *entity.ServiceRequest) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.requests[req.ID]; !ok {
		return ErrNotFound
	}
	req.UpdatedAt = time.Now()
	m.state.requests[req.ID] = copyRequest(req)
	return nil
}

func (m *memoryRequestStore) CompareAndSetStatus(ctx context.Context, id, expected string, mutate func(*entity.ServiceRequest)) (*entity.ServiceRequest, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	req, ok := m.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != expected {
		return nil, ErrConflict
	}
	cp := copyRequest(req)
	mutate(cp)
	cp.UpdatedAt = time.Now()
	m.state.requests[id] = cp
	return copyRequest(cp), nil
}

func (m *memoryRequestStore) GenerateCode(ctx context.Context) (string, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	m.state.codeSeq++
	return fmt.Sprintf("SR-%d-%04d", time.Now().Year(), m.state.codeSeq), nil
}

type memoryOfferStore struct {
	state  *memoryState
	policy Policy
}

func (m *memoryOfferStore) InsertIfUnderQuota(ctx context.Context, req *entity.ServiceRequest, offer *entity.Offer) (int, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	stored, ok := m.state.requests[req.ID]
	if !ok {
		return 0, ErrNotFound
	}
	if stored.Status != entity.StatusBidding {
		return 0, ErrRequestNotOpen
	}
	existing := m.state.offers[req.ID]
	if stored.MaxOffers > 0 && len(existing) >= stored.MaxOffers {
		return 0, &QuotaExceededError{Max: stored.MaxOffers, Current: len(existing)}
	}
	if !m.policy.AllowMultipleOffersPerProvider {
		for _, o := range existing {
			if o.ProviderUsername == offer.ProviderUsername {
				return 0, ErrDuplicateOffer
			}
		}
	}

	offer.SortOrder = len(existing) + 1
	offer.CreatedAt = time.Now()
	cp := *offer
	m.state.offers[req.ID] = append(existing, &cp)
	return len(existing) + 1, nil
}

func (m *memoryOfferStore) FindByID(ctx context.Context, id string) (*entity.Offer, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	for _, offers := range m.state.offers {
		for _, o := range offers {
			if o.ID == id {
				cp := *o
				return &cp, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *memoryOfferStore) ListByRequest(ctx context.Context, requestID string) ([]entity.Offer, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	offers := m.state.offers[requestID]
	out := make([]entity.Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memoryOfferStore) CountByRequest(ctx context.Context, requestID string) (int, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return len(m.state.offers[requestID]), nil
}

type memoryEvaluationStore struct {
	state *memoryState
}

func evalKey(requestID, evaluatorRole string) string {
	return requestID + "/" + evaluatorRole
}

func (m *memoryEvaluationStore) Upsert(ctx context.Context, eval *entity.Evaluation) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	key := evalKey(eval.RequestID, eval.EvaluatorRole)
	if existing, ok := m.state.evaluations[key]; ok {
		eval.ID = existing.ID
		eval.CreatedAt = existing.CreatedAt
	} else if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now()
	}
	eval.UpdatedAt = time.Now()
	cp := *eval
	m.state.evaluations[key] = &cp
	return nil
}

func (m *memoryEvaluationStore) FindByRequest(ctx context.Context, requestID, evaluatorRole string) (*entity.Evaluation, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	eval, ok := m.state.evaluations[evalKey(requestID, evaluatorRole)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *eval
	return &cp, nil
}

type memoryActivityLogStore struct {
	state *memoryState
}

func (m *memoryActivityLogStore) Create(ctx context.Context, log *entity.ActivityLog) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	log.CreatedAt = time.Now()
	m.state.logs = append(m.state.logs, *log)
	return nil
}

func (m *memoryActivityLogStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]entity.ActivityLog, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var out []entity.ActivityLog
	for i := len(m.state.logs) - 1; i >= 0; i-- {
		l := m.state.logs[i]
		if l.EntityType == entityType && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}
