package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/linking"
	"horizon-bank/internal/repository"
)

const defaultAccountCacheTTL = 30 * time.Second

// AccountListProjector proyecta las cuentas vinculadas de un usuario.
// Es un cache read-through por usuario con ventana de frescura acotada;
// cada refresh reemplaza el set completo, nunca hay merge parcial.
type AccountListProjector struct {
	logger   *zap.Logger
	provider linking.Provider
	banks    repository.BankRepository
	ttl      time.Duration
	redis    *redis.Client

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]accountCacheEntry
}

type accountCacheEntry struct {
	accounts  []domain.Account
	fetchedAt time.Time
}

func NewAccountListProjector(logger *zap.Logger, provider linking.Provider, banks repository.BankRepository, ttl time.Duration, redisClient *redis.Client) *AccountListProjector {
	if ttl <= 0 {
		ttl = defaultAccountCacheTTL
	}
	return &AccountListProjector{
		logger:   logger,
		provider: provider,
		banks:    banks,
		ttl:      ttl,
		redis:    redisClient,
		cache:    make(map[string]accountCacheEntry),
	}
}

// ListAccounts devuelve la proyeccion vigente, re-consultando al proveedor
// solo si el cache supero la ventana de frescura. Sin bancos vinculados
// devuelve una secuencia vacia, nunca nil.
func (p *AccountListProjector) ListAccounts(ctx context.Context, user domain.User) ([]domain.Account, error) {
	if accounts, ok := p.cached(ctx, user.ID); ok {
		return accounts, nil
	}
	return p.fetch(ctx, user)
}

// Refresh fuerza una re-consulta; reemplaza el set completo de forma atomica.
func (p *AccountListProjector) Refresh(ctx context.Context, user domain.User) ([]domain.Account, error) {
	return p.fetch(ctx, user)
}

// Invalidate descarta la proyeccion cacheada del usuario.
func (p *AccountListProjector) Invalidate(userID string) {
	p.mu.Lock()
	delete(p.cache, userID)
	p.mu.Unlock()

	if p.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := p.redis.Del(ctx, accountCacheKey(userID)).Err(); err != nil {
			p.logger.Warn("account cache invalidate failed", zap.Error(err), zap.String("user_id", userID))
		}
	}
}

// fetch coalesce refreshes concurrentes del mismo usuario en una sola
// llamada al proveedor via singleflight.
func (p *AccountListProjector) fetch(ctx context.Context, user domain.User) ([]domain.Account, error) {
	v, err, _ := p.group.Do(user.ID, func() (any, error) {
		banks, err := p.banks.ListByUser(ctx, user.ID)
		if err != nil {
			p.logger.Error("list linked banks failed", zap.Error(err), zap.String("user_id", user.ID))
			return nil, ErrProviderUnavailable
		}

		accounts := make([]domain.Account, 0, len(banks))
		for _, bank := range banks {
			data, err := p.provider.GetAccounts(ctx, bank.AccessToken)
			if err != nil {
				// Un fallo a mitad de camino no publica un set parcial.
				if errors.Is(err, linking.ErrRejected) {
					return nil, ErrProviderRejected
				}
				p.logger.Error("get accounts failed", zap.Error(err), zap.String("bank_id", bank.ID))
				return nil, ErrProviderUnavailable
			}
			for _, a := range data {
				accounts = append(accounts, domain.Account{
					ID:               a.ID,
					UserID:           user.ID,
					BankID:           bank.ID,
					Name:             a.Name,
					Mask:             a.Mask,
					InstitutionName:  bank.InstitutionName,
					AvailableBalance: a.AvailableBalance,
					CurrentBalance:   a.CurrentBalance,
				})
			}
		}

		p.store(user.ID, accounts)
		return accounts, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneAccounts(v.([]domain.Account)), nil
}

func (p *AccountListProjector) cached(ctx context.Context, userID string) ([]domain.Account, bool) {
	p.mu.Lock()
	entry, ok := p.cache[userID]
	fresh := ok && time.Since(entry.fetchedAt) < p.ttl
	p.mu.Unlock()
	if fresh {
		return cloneAccounts(entry.accounts), true
	}
	if p.redis == nil {
		return nil, false
	}

	rctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := p.redis.Get(rctx, accountCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("account cache read failed", zap.Error(err), zap.String("user_id", userID))
		}
		return nil, false
	}
	var accounts []domain.Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, false
	}
	p.mu.Lock()
	p.cache[userID] = accountCacheEntry{accounts: accounts, fetchedAt: time.Now().UTC()}
	p.mu.Unlock()
	return cloneAccounts(accounts), true
}

func (p *AccountListProjector) store(userID string, accounts []domain.Account) {
	p.mu.Lock()
	p.cache[userID] = accountCacheEntry{accounts: accounts, fetchedAt: time.Now().UTC()}
	p.mu.Unlock()

	if p.redis == nil {
		return
	}
	raw, err := json.Marshal(accounts)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := p.redis.Set(ctx, accountCacheKey(userID), raw, p.ttl).Err(); err != nil {
		p.logger.Warn("account cache write failed", zap.Error(err), zap.String("user_id", userID))
	}
}

func accountCacheKey(userID string) string {
	return "accounts:projection:" + userID
}

func cloneAccounts(accounts []domain.Account) []domain.Account {
	out := make([]domain.Account, len(accounts))
	copy(out, accounts)
	return out
}
