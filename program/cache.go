package program

import (
	"strconv"

	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/shader"
)

// Cache shares one Program between every object with equal Features.
type Cache struct {
	ctx      gpu.Context
	logger   *zap.Logger
	validate bool
	keyOf    func(shader.Features) string

	programs map[string]*Program

	// chains is the highest collision suffix in use per feature key.
	chains map[string]int
	free   []int
	next   int

	// Collisions counts keys that matched an existing entry with different
	// Features.
	Collisions int
}

// NewCache creates an empty cache. When validate is set each variant is also
// validated after linking.
func NewCache(ctx gpu.Context, logger *zap.Logger, validate bool) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		ctx:      ctx,
		logger:   logger.Named("program"),
		validate: validate,
		keyOf:    shader.Features.Key,
		programs: map[string]*Program{},
		chains:   map[string]int{},
	}
}

// Len is the number of live programs.
func (c *Cache) Len() int { return len(c.programs) }

// Acquire returns the Program for f, building it on first use. The returned
// Program may have failed to build; check Usable before drawing with it.
func (c *Cache) Acquire(f shader.Features) *Program {
	key := c.keyOf(f)
	slot := ""
	for i := 0; i <= c.chains[key]; i++ {
		candidate := slotName(key, i)
		p, ok := c.programs[candidate]
		if !ok {
			if slot == "" {
				slot = candidate
			}
			continue
		}
		if p.features.Equal(f) {
			p.useCount++
			return p
		}
		if i == 0 {
			c.Collisions++
			c.logger.Warn("program key collision",
				zap.String("key", key),
				zap.Stringer("existing", p.features),
				zap.Stringer("incoming", f))
		}
	}
	if slot == "" {
		c.chains[key]++
		slot = slotName(key, c.chains[key])
	}

	p := &Program{
		id:       c.allocID(),
		key:      slot,
		base:     key,
		features: f,
		logger:   c.logger,
		sources:  shader.Build(f),
		useCount: 1,
	}
	p.build(c.ctx, c.validate)
	c.programs[slot] = p
	if err := p.Err(); err != nil {
		c.logger.Debug("program build failed", zap.String("key", slot), zap.Error(err))
	} else {
		c.logger.Debug("program built", zap.String("key", slot), zap.Int("id", p.id))
	}
	return p
}

// Release drops one reference to p. The last release deletes its GPU
// programs and evicts it.
func (c *Cache) Release(p *Program) {
	if p == nil || p.released {
		return
	}
	p.useCount--
	if p.useCount > 0 {
		return
	}
	p.destroy(c.ctx)
	delete(c.programs, p.key)
	c.free = append(c.free, p.id)
	for i := 0; i <= c.chains[p.base]; i++ {
		if _, ok := c.programs[slotName(p.base, i)]; ok {
			return
		}
	}
	delete(c.chains, p.base)
}

// slotName is the cache slot of the i-th program sharing key.
func slotName(key string, i int) string {
	if i == 0 {
		return key
	}
	return key + "#" + strconv.Itoa(i)
}

// Rebuild recompiles every cached Program in place from its retained
// sources. Keys, ids and pointers are unchanged; generations advance.
func (c *Cache) Rebuild() {
	for _, p := range c.programs {
		p.build(c.ctx, c.validate)
		if err := p.Err(); err != nil {
			c.logger.Warn("program rebuild failed", zap.String("key", p.key), zap.Error(err))
		}
	}
	c.logger.Info("programs rebuilt", zap.Int("count", len(c.programs)))
}

// Get returns the live program stored under key.
func (c *Cache) Get(key string) (*Program, bool) {
	p, ok := c.programs[key]
	return p, ok
}

func (c *Cache) allocID() int {
	if n := len(c.free); n > 0 {
		id := c.free[n-1]
		c.free = c.free[:n-1]
		return id
	}
	id := c.next
	c.next++
	return id
}
