package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avamatic/fnv-planner/internal/game/build"
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/storage/postgres"
	"github.com/avamatic/fnv-planner/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makeTestState() *build.State {
	s := build.NewState()
	s.Name = "Courier Six"
	s.Sex = character.SexFemale
	s.Special[character.Intelligence] = 8
	s.TaggedSkills = []character.ActorValue{character.Guns, character.Repair, character.Survival}
	s.Levels = map[int]*build.LevelPlan{
		2: {
			Level:       2,
			SkillPoints: map[character.ActorValue]int{character.Guns: 12},
			Perks:       []uint32{0x31DE0},
			Equipment:   map[int]uint32{2: 0x44FA0},
		},
	}
	return s
}

func TestBuildRepository_CreateAndGet(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewBuildRepository(pool)
	ctx := context.Background()

	name := uniqueName("build")
	created, err := repo.Create(ctx, name, makeTestState())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, name, created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Courier Six", got.State.Name)
	assert.Equal(t, 8, got.State.Special[character.Intelligence])
	require.Contains(t, got.State.Levels, 2)
	assert.Equal(t, []uint32{0x31DE0}, got.State.Levels[2].Perks)
	assert.Equal(t, uint32(0x44FA0), got.State.Levels[2].Equipment[2])

	byName, err := repo.GetByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
}

func TestBuildRepository_DuplicateName(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewBuildRepository(pool)
	ctx := context.Background()

	name := uniqueName("build")
	_, err := repo.Create(ctx, name, makeTestState())
	require.NoError(t, err)

	_, err = repo.Create(ctx, name, makeTestState())
	assert.ErrorIs(t, err, postgres.ErrBuildNameTaken)
}

func TestBuildRepository_Update(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewBuildRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, uniqueName("build"), makeTestState())
	require.NoError(t, err)

	next := makeTestState()
	next.Levels[4] = &build.LevelPlan{
		Level: 4,
		Perks: []uint32{0x31DE1},
	}
	require.NoError(t, repo.Update(ctx, created.ID, next))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Contains(t, got.State.Levels, 4)

	err = repo.Update(ctx, uuid.New(), next)
	assert.ErrorIs(t, err, postgres.ErrBuildNotFound, "unknown id")
}

func TestBuildRepository_ListAndDelete(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewBuildRepository(pool)
	ctx := context.Background()

	first, err := repo.Create(ctx, uniqueName("build_a"), makeTestState())
	require.NoError(t, err)
	_, err = repo.Create(ctx, uniqueName("build_b"), makeTestState())
	require.NoError(t, err)

	builds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, builds, 2)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), postgres.ErrBuildNotFound)

	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, postgres.ErrBuildNotFound)
}
