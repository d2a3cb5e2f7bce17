package wordstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	c := s.Category(CategorySho)
	assert.NoError(c.AddPattern(`bit\.ly`, 0))
	assert.NoError(c.AddPattern(`t\.cn`, 0))

	assert.True(s.Match(ctx, CategorySho, "check out bit.ly/abc"))
	assert.True(s.Match(ctx, CategorySho, "CHECK OUT BIT.LY/ABC"))
	assert.False(s.Match(ctx, CategorySho, "nothing to see here"))
	assert.False(s.Match(ctx, CategorySho, ""))
	assert.False(s.Match(ctx, "no-such-category", "bit.ly"))
}

func TestMatchWhitespacePasses(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	assert.NoError(s.Category(CategorySho).AddPattern(`https`, 0))

	// collapsed pass: doubled spaces reduce to single spaces
	assert.True(s.Match(ctx, CategorySho, "go to  https  now"))
	// stripped pass: spaced-out token only matches after removing whitespace
	assert.True(s.Match(ctx, CategorySho, "h t t p s"))
	// no spaces left after collapse: stripped retry is skipped
	assert.False(s.Match(ctx, CategorySho, "htps"))
}

func TestMatchCountsHits(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	c := s.Category(CategoryAff)
	assert.NoError(c.AddPattern(`ref=[0-9]+`, 0))

	assert.True(s.Match(ctx, CategoryAff, "shop.example/item?ref=123"))
	assert.True(s.Match(ctx, CategoryAff, "shop.example/item?ref=456"))
	assert.Equal(int64(2), c.Hits()[`ref=[0-9]+`])
}

func TestMatchDeterministic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	assert.NoError(s.Category(CategoryIml).AddPattern(`whatsapp`, 0))

	for i := 0; i < 3; i++ {
		assert.True(s.Match(ctx, CategoryIml, "join my WhatsApp group"))
	}
}

func TestAddPatternDuplicateAndInvalid(t *testing.T) {
	assert := assert.New(t)

	s := NewStore(nil, nil)
	c := s.Category(CategoryTgp)
	assert.NoError(c.AddPattern(`proxy`, 3))
	assert.NoError(c.AddPattern(`proxy`, 9))
	assert.Equal(int64(3), c.Hits()[`proxy`])
	assert.Error(c.AddPattern(`(unclosed`, 0))
}

func TestCompositeBanText(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	assert.NoError(s.Category(CategoryBan).AddPattern(`free crypto`, 0))
	assert.NoError(s.Category(CategoryAd).AddPattern(`best price`, 0))
	assert.NoError(s.Category(CategoryCon).AddPattern(`call me`, 0))

	assert.True(s.MatchBanText(ctx, "FREE CRYPTO inside"))
	assert.True(s.MatchBanText(ctx, "best price today, call me"))
	assert.False(s.MatchBanText(ctx, "best price today"))
	assert.False(s.MatchBanText(ctx, "hello world"))
}

func TestSaveAndLoadFile(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewStore(nil, nil)
	assert.NoError(s.Category(CategorySho).AddPattern(`bit\.ly`, 0))
	assert.True(s.Match(ctx, CategorySho, "bit.ly/x"))

	p := filepath.Join(t.TempDir(), "words.json")
	assert.NoError(s.SaveToFileJSON(p))

	s2 := NewStore(nil, nil)
	assert.NoError(s2.LoadFromFileJSON(p))
	assert.Equal(int64(1), s2.Category(CategorySho).Hits()[`bit\.ly`])
	assert.True(s2.Match(ctx, CategorySho, "bit.ly/y"))
}
