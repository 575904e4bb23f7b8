package engagement

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xengage/internal/types"
)

func ids(s ...string) []types.Identity {
	out := make([]types.Identity, len(s))
	for i, v := range s {
		out[i] = types.Identity(v)
	}
	return out
}

func TestBuildSetMembership(t *testing.T) {
	m := SetMembership{"carol": types.NewIdentitySet("alice")}

	matrix := NewBuilder(false, zerolog.Nop()).Build(context.Background(), ids("alice", "bob"), ids("carol"), m)

	assert.Equal(t, []string{"Username", "carol", "False_count"}, matrix.Header())
	assert.Equal(t, [][]string{
		{"alice", "TRUE", "0"},
		{"bob", "FALSE", "1"},
	}, matrix.Records())
}

func TestBuildNoSubjects(t *testing.T) {
	matrix := NewBuilder(false, zerolog.Nop()).Build(context.Background(), nil, ids("carol", "dave"), SetMembership{})

	assert.Equal(t, []string{"Username", "carol", "dave", "False_count"}, matrix.Header())
	assert.Zero(t, matrix.Len())
	assert.Empty(t, matrix.Records())
}

func TestFalseCountMatchesCells(t *testing.T) {
	ctx := context.Background()

	for nTargets := 0; nTargets <= 4; nTargets++ {
		for nSubjects := 0; nSubjects <= 3; nSubjects++ {
			var subjects, targets []types.Identity
			for i := 0; i < nSubjects; i++ {
				subjects = append(subjects, types.Identity(fmt.Sprintf("s%d", i)))
			}
			for i := 0; i < nTargets; i++ {
				targets = append(targets, types.Identity(fmt.Sprintf("t%d", i)))
			}
			// engaged when subject and target indices share parity
			m := MembershipFunc(func(_ context.Context, subj, tgt types.Identity) bool {
				return (subj[1]-'0')%2 == (tgt[1]-'0')%2
			})

			matrix := NewBuilder(false, zerolog.Nop()).Build(ctx, subjects, targets, m)

			require.Equal(t, nSubjects, matrix.Len())
			for _, row := range matrix.Rows() {
				misses := 0
				for _, c := range row.Cells() {
					if !c.Engaged {
						misses++
					}
				}
				assert.Equal(t, misses, row.FalseCount(), "subjects=%d targets=%d row=%s", nSubjects, nTargets, row.Subject)
				assert.Len(t, row.Cells(), nTargets)
			}
		}
	}
}

func TestBuildRanked(t *testing.T) {
	m := SetMembership{
		"t1": types.NewIdentitySet("b", "c"),
		"t2": types.NewIdentitySet("c"),
	}

	matrix := NewBuilder(true, zerolog.Nop()).Build(context.Background(), ids("a", "b", "c", "d"), ids("t1", "t2"), m)

	var order []types.Identity
	var counts []int
	for _, r := range matrix.Rows() {
		order = append(order, r.Subject)
		counts = append(counts, r.FalseCount())
	}
	assert.Equal(t, ids("c", "b", "a", "d"), order)
	assert.Equal(t, []int{0, 1, 2, 2}, counts)
	assert.Equal(t, ids("t1", "t2"), matrix.Targets(), "columns keep target order")
}

func TestBuildAllPairsSkipsSelf(t *testing.T) {
	users := ids("alice", "bob", "carol")
	var queried [][2]types.Identity
	m := MembershipFunc(func(_ context.Context, subj, tgt types.Identity) bool {
		queried = append(queried, [2]types.Identity{subj, tgt})
		return subj == "alice"
	})

	b := NewBuilder(false, zerolog.Nop())
	b.SkipSelf = true
	var progress []int
	b.Progress = func(done, total int) {
		assert.Equal(t, 6, total)
		progress = append(progress, done)
	}

	matrix := b.Build(context.Background(), users, users, m)

	assert.Len(t, queried, 6)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, progress)
	assert.Equal(t, [][]string{
		{"alice", "", "TRUE", "TRUE", "0"},
		{"bob", "FALSE", "", "FALSE", "2"},
		{"carol", "FALSE", "FALSE", "", "2"},
	}, matrix.Records())

	row := matrix.Rows()[0]
	engaged, applicable := row.Value("alice")
	assert.False(t, engaged)
	assert.False(t, applicable)
	engaged, applicable = row.Value("bob")
	assert.True(t, engaged)
	assert.True(t, applicable)
	_, applicable = row.Value("zed")
	assert.False(t, applicable)
}

func TestBuildSetMembershipEvaluatesSelf(t *testing.T) {
	m := SetMembership{
		"carol": types.NewIdentitySet("alice", "carol"),
		"dave":  types.NewIdentitySet("carol"),
	}

	var total int
	b := NewBuilder(false, zerolog.Nop())
	b.Progress = func(_, n int) { total = n }

	matrix := b.Build(context.Background(), ids("carol", "dave"), ids("carol", "dave"), m)

	assert.Equal(t, 4, total)
	assert.Equal(t, [][]string{
		{"carol", "TRUE", "TRUE", "0"},
		{"dave", "FALSE", "FALSE", "2"},
	}, matrix.Records())
}

func TestCaseMismatches(t *testing.T) {
	m := SetMembership{
		"carol": types.NewIdentitySet("Alice", "bob"),
		"dave":  types.NewIdentitySet("alice"),
	}

	got := m.CaseMismatches(ids("alice", "BOB", "Erin", "bob"))
	assert.Equal(t, map[types.Identity]types.Identity{"BOB": "bob"}, got)

	assert.Empty(t, SetMembership{}.CaseMismatches(ids("alice")))
}

func TestBuildDropsDuplicates(t *testing.T) {
	m := SetMembership{"carol": types.NewIdentitySet("bob")}

	matrix := NewBuilder(false, zerolog.Nop()).Build(context.Background(), ids("bob", "alice", "bob"), ids("carol", "carol"), m)

	assert.Equal(t, []string{"Username", "carol", "False_count"}, matrix.Header())
	assert.Equal(t, [][]string{
		{"bob", "TRUE", "0"},
		{"alice", "FALSE", "1"},
	}, matrix.Records())
}

func TestRowsAreCopies(t *testing.T) {
	matrix := NewBuilder(false, zerolog.Nop()).Build(context.Background(), ids("a"), ids("t"), SetMembership{})

	rows := matrix.Rows()
	cells := rows[0].Cells()
	cells[0].Engaged = true

	assert.Equal(t, 1, matrix.Rows()[0].FalseCount())
	assert.False(t, matrix.Rows()[0].Cells()[0].Engaged)
}

func TestNewMatrixChecksColumns(t *testing.T) {
	targets := ids("carol", "dave")

	_, err := NewMatrix(targets, []Row{NewRow("alice", []Cell{{Target: "carol"}})})
	assert.Error(t, err)

	_, err = NewMatrix(targets, []Row{NewRow("alice", []Cell{{Target: "dave"}, {Target: "carol"}})})
	assert.Error(t, err)

	m, err := NewMatrix(targets, []Row{NewRow("alice", []Cell{{Target: "carol", Engaged: true}, {Target: "dave"}})})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Rows()[0].FalseCount())
}
