package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-monkeys/blogqa/internal/apperr"
)

func TestFakeStoreCreateAndGetByAPIKey(t *testing.T) {
	s := NewFakeStore()
	p := &Publisher{Name: "Acme", PrimaryDomain: "acme.example", APIKey: "pub_abc", Config: Config{DailyBlogLimit: 5}}

	require.NoError(t, s.Create(context.Background(), p))
	assert.NotZero(t, p.ID)
	assert.True(t, p.Active)

	got, err := s.GetByAPIKey(context.Background(), "pub_abc")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestFakeStoreReserveBlogSlotRespectsLimit(t *testing.T) {
	s := NewFakeStore()
	p := &Publisher{Name: "Acme", PrimaryDomain: "acme.example", APIKey: "pub_abc", Config: Config{DailyBlogLimit: 1}}
	require.NoError(t, s.Create(context.Background(), p))

	require.NoError(t, s.ReserveBlogSlot(context.Background(), p.ID))

	err := s.ReserveBlogSlot(context.Background(), p.ID)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, appErr.Kind)
}

func TestFakeStoreReleaseBlogSlotFreesCapacity(t *testing.T) {
	s := NewFakeStore()
	p := &Publisher{Name: "Acme", PrimaryDomain: "acme.example", APIKey: "pub_abc", Config: Config{DailyBlogLimit: 1}}
	require.NoError(t, s.Create(context.Background(), p))

	require.NoError(t, s.ReserveBlogSlot(context.Background(), p.ID))
	require.NoError(t, s.ReleaseBlogSlot(context.Background(), p.ID, false))
	require.NoError(t, s.ReserveBlogSlot(context.Background(), p.ID))
}

func TestFakeStoreUpdateReindexesRotatedAPIKey(t *testing.T) {
	s := NewFakeStore()
	p := &Publisher{Name: "Acme", PrimaryDomain: "acme.example", APIKey: "pub_old", Config: Config{DailyBlogLimit: 5}}
	require.NoError(t, s.Create(context.Background(), p))

	p.APIKey = "pub_new"
	require.NoError(t, s.Update(context.Background(), p))

	_, err := s.GetByAPIKey(context.Background(), "pub_old")
	assert.Error(t, err, "the old key must no longer resolve")

	got, err := s.GetByAPIKey(context.Background(), "pub_new")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestFakeStoreReserveBlogSlotUnknownPublisher(t *testing.T) {
	s := NewFakeStore()
	err := s.ReserveBlogSlot(context.Background(), 999)
	assert.Error(t, err)
}
