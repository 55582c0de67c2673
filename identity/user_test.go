package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftstudio/auth-gateway/identity"
	"github.com/draftstudio/auth-gateway/identity/repofake"
)

func TestDeriveNamePrefersFirstNonEmptyKey(t *testing.T) {
	metadata := map[string]string{
		"name":      "Grace Hopper",
		"full_name": "Someone Else",
	}
	require.Equal(t, "Grace Hopper", identity.DeriveName(metadata))
}

func TestDeriveNameSkipsEmptyValues(t *testing.T) {
	metadata := map[string]string{
		"name":      "   ",
		"full_name": "Alan Turing",
	}
	require.Equal(t, "Alan Turing", identity.DeriveName(metadata))
}

func TestDeriveNameGivenAndFamilyName(t *testing.T) {
	metadata := map[string]string{
		"given_name":  "Ada",
		"family_name": "Lovelace",
	}
	name := identity.DeriveName(metadata)
	first, last := identity.SplitName(name)
	require.Equal(t, "Ada", first)
	require.Equal(t, "Lovelace", last)
}

func TestDeriveNameEmptyMetadata(t *testing.T) {
	require.Equal(t, "", identity.DeriveName(nil))
	require.Equal(t, "", identity.DeriveName(map[string]string{"unrelated": "x"}))
}

func TestSplitName(t *testing.T) {
	first, last := identity.SplitName("Ada Augusta King Lovelace")
	require.Equal(t, "Ada", first)
	require.Equal(t, "Augusta King Lovelace", last)

	first, last = identity.SplitName("Plato")
	require.Equal(t, "Plato", first)
	require.Equal(t, "", last)

	first, last = identity.SplitName("")
	require.Equal(t, "", first)
	require.Equal(t, "", last)
}

func TestFakeRepoUpsertTwiceKeepsOneRecord(t *testing.T) {
	repo := repofake.NewFakeUserRepo()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &identity.User{
		ID:          "user-1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
	})
	require.NoError(t, err)

	updated, err := repo.Upsert(ctx, &identity.User{
		ID:          "user-1",
		Email:       "ada@example.com",
		DisplayName: "Ada Lovelace",
	})
	require.NoError(t, err)
	require.Equal(t, "user-1", updated.ID)
	require.Equal(t, "Ada Lovelace", updated.DisplayName)

	all, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].CreatedAt.After(all[0].UpdatedAt))
}

func TestFakeRepoMissingIsNilNil(t *testing.T) {
	repo := repofake.NewFakeUserRepo()
	user, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, user)
}
