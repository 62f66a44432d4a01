package leave_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.Local)

func today() leave.Date { return leave.Today(testNow) }

// day returns today+n as YYYY-MM-DD.
func day(n int) string { return today().AddDays(n).String() }

func ptr(s string) *string { return &s }

type fixture struct {
	svc   *leave.Service
	store *store.Memory
	admin leave.Identity
	alice leave.Identity
	bob   leave.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	for _, a := range []leave.Account{
		{ID: "acc-admin", Name: "root", Role: leave.RoleAdmin},
		{ID: "acc-alice", Name: "alice", Role: leave.RoleUser},
		{ID: "acc-bob", Name: "bob", Role: leave.RoleUser},
	} {
		require.NoError(t, mem.CreateAccount(ctx, a))
	}

	svc := leave.NewService(mem, nil)
	svc.Clock = func() time.Time { return testNow }

	return &fixture{
		svc:   svc,
		store: mem,
		admin: leave.Identity{AccountID: "acc-admin", Role: leave.RoleAdmin},
		alice: leave.Identity{AccountID: "acc-alice", Role: leave.RoleUser},
		bob:   leave.Identity{AccountID: "acc-bob", Role: leave.RoleUser},
	}
}

func (f *fixture) create(t *testing.T, who leave.Identity, from, to int, reason string) *leave.LeaveRequest {
	t.Helper()
	l, err := f.svc.Create(context.Background(), who, leave.CreateInput{
		FromDate: day(from),
		ToDate:   day(to),
		Reason:   reason,
	})
	require.NoError(t, err)
	return l
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_PendingAndOwnedByCaller(t *testing.T) {
	f := newFixture(t)

	l := f.create(t, f.alice, 5, 7, "trip")

	assert.Equal(t, leave.StatusPending, l.Status)
	assert.Equal(t, f.alice.AccountID, l.OwnerID)
	require.NotNil(t, l.Owner)
	assert.Equal(t, "alice", l.Owner.Name)
	assert.Equal(t, day(5), l.FromDate.String())
	assert.Equal(t, day(7), l.ToDate.String())
	assert.Equal(t, 3, l.Days())
	assert.Equal(t, testNow, l.AppliedAt)
	assert.NotEmpty(t, l.ID)
}

func TestCreate_MissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inputs := []leave.CreateInput{
		{ToDate: day(1), Reason: "x"},
		{FromDate: day(1), Reason: "x"},
		{FromDate: day(1), ToDate: day(1)},
		{FromDate: day(1), ToDate: day(1), Reason: "   "},
	}
	for _, in := range inputs {
		_, err := f.svc.Create(ctx, f.alice, in)
		assert.ErrorIs(t, err, leave.ErrInvalidInput)
		assert.Equal(t, "All fields are required: fromDate, toDate, reason", leave.MessageOf(err))
	}
}

func TestCreate_MalformedDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice, leave.CreateInput{
		FromDate: "next tuesday", ToDate: day(3), Reason: "x",
	})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestCreate_FromDateBoundary(t *testing.T) {
	// GIVEN: Clock at 09:30 on the 10th
	// WHEN: Submitting from today, and from yesterday
	// THEN: Today is accepted, yesterday fails with a date range error
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, f.alice, leave.CreateInput{FromDate: day(0), ToDate: day(0), Reason: "today"})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Days())

	_, err = f.svc.Create(ctx, f.bob, leave.CreateInput{FromDate: day(-1), ToDate: day(2), Reason: "yesterday"})
	assert.ErrorIs(t, err, leave.ErrDateRange)
	assert.Equal(t, "From date must be today or in the future", leave.MessageOf(err))
}

func TestCreate_ToDateBeforeFromDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice, leave.CreateInput{
		FromDate: day(5), ToDate: day(4), Reason: "backwards",
	})
	assert.ErrorIs(t, err, leave.ErrDateRange)
	assert.Equal(t, "To date must be after from date", leave.MessageOf(err))
}

func TestCreate_ReasonLengthBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, leave.CreateInput{
		FromDate: day(1), ToDate: day(1), Reason: strings.Repeat("a", 500),
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice, leave.CreateInput{
		FromDate: day(3), ToDate: day(3), Reason: strings.Repeat("a", 501),
	})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestCreate_OverlapRejected(t *testing.T) {
	// GIVEN: alice has a Pending leave [+5, +7]
	// WHEN: alice submits [+6, +8]
	// THEN: Overlap error; bob is unaffected by alice's leaves
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.alice, 5, 7, "trip")

	_, err := f.svc.Create(ctx, f.alice, leave.CreateInput{FromDate: day(6), ToDate: day(8), Reason: "trip2"})
	assert.ErrorIs(t, err, leave.ErrOverlap)
	assert.Equal(t, "You already have a leave request for this period", leave.MessageOf(err))

	// Shared boundary day is an overlap too.
	_, err = f.svc.Create(ctx, f.alice, leave.CreateInput{FromDate: day(7), ToDate: day(9), Reason: "edge"})
	assert.ErrorIs(t, err, leave.ErrOverlap)

	// Adjacent is fine.
	f.create(t, f.alice, 8, 9, "adjacent")

	f.create(t, f.bob, 6, 8, "bob's trip")
}

func TestCreate_RejectedLeaveDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := f.create(t, f.alice, 5, 7, "trip")
	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Rejected")})
	require.NoError(t, err)

	f.create(t, f.alice, 5, 7, "trip again")
}

func TestCreate_ApprovedLeaveBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := f.create(t, f.alice, 5, 7, "trip")
	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice, leave.CreateInput{FromDate: day(7), ToDate: day(7), Reason: "x"})
	assert.ErrorIs(t, err, leave.ErrOverlap)
}

func TestCreate_UnknownOwner(t *testing.T) {
	f := newFixture(t)
	ghost := leave.Identity{AccountID: "acc-ghost", Role: leave.RoleUser}

	_, err := f.svc.Create(context.Background(), ghost, leave.CreateInput{FromDate: day(1), ToDate: day(1), Reason: "x"})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestCreate_ConcurrentOverlapping_AtMostOneSucceeds(t *testing.T) {
	// GIVEN: 20 goroutines submitting the same range for alice
	// THEN: Exactly one succeeds, the rest are overlap errors
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		overlaps  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.alice, leave.CreateInput{FromDate: day(10), ToDate: day(12), Reason: "race"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case leave.KindOf(err) == leave.ErrOverlap:
				overlaps++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, overlaps)

	leaves, err := f.svc.List(ctx, f.alice, leave.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
}

// =============================================================================
// LIST & GET
// =============================================================================

func TestList_RoleScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.alice, 1, 1, "a1")
	f.create(t, f.alice, 3, 3, "a2")
	f.create(t, f.bob, 1, 1, "b1")

	mine, err := f.svc.List(ctx, f.alice, leave.ListFilter{Employee: "bob"})
	require.NoError(t, err)
	assert.Len(t, mine, 2, "employee filter is ignored for non-admins")
	for _, l := range mine {
		assert.Equal(t, f.alice.AccountID, l.OwnerID)
	}

	all, err := f.svc.List(ctx, f.admin, leave.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bobs, err := f.svc.List(ctx, f.admin, leave.ListFilter{Employee: "BO"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "b1", bobs[0].Reason)

	byID, err := f.svc.List(ctx, f.admin, leave.ListFilter{Employee: "acc-alice"})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := testNow
	f.svc.Clock = func() time.Time { return clock }

	f.create(t, f.alice, 1, 1, "first")
	clock = clock.Add(time.Minute)
	f.create(t, f.alice, 3, 3, "second")

	leaves, err := f.svc.List(ctx, f.alice, leave.ListFilter{})
	require.NoError(t, err)
	require.Len(t, leaves, 2)
	assert.Equal(t, "second", leaves[0].Reason)
	assert.Equal(t, "first", leaves[1].Reason)
}

func TestList_StatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l := f.create(t, f.alice, 1, 1, "a1")
	f.create(t, f.alice, 3, 3, "a2")
	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	require.NoError(t, err)

	approved, err := f.svc.List(ctx, f.alice, leave.ListFilter{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, l.ID, approved[0].ID)

	_, err = f.svc.List(ctx, f.alice, leave.ListFilter{Status: "cancelled"})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	leaves, err := f.svc.List(context.Background(), f.bob, leave.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, leaves)
	assert.Empty(t, leaves)
}

func TestGet_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	got, err := f.svc.Get(ctx, f.alice, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = f.svc.Get(ctx, f.admin, l.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.bob, l.ID)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	_, err = f.svc.Get(ctx, f.alice, "missing")
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestGet_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	first, err := f.svc.Get(ctx, f.alice, l.ID)
	require.NoError(t, err)
	second, err := f.svc.Get(ctx, f.alice, l.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_AdminApprovesThenOwnerCannotEdit(t *testing.T) {
	// GIVEN: alice's Pending leave
	// WHEN: Admin approves it, then alice edits the reason
	// THEN: Approval succeeds; alice's edit fails with InvalidState
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	approved, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{
		Status:         ptr("Approved"),
		ReviewComments: ptr("enjoy"),
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, "enjoy", approved.ReviewComments)

	_, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{Reason: ptr("changed")})
	assert.ErrorIs(t, err, leave.ErrInvalidState)
	assert.Equal(t, "You can only edit pending leave requests", leave.MessageOf(err))
}

func TestUpdate_AdminStatusValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	for _, bad := range []*string{nil, ptr(""), ptr("Pending"), ptr("Cancelled")} {
		_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: bad})
		assert.ErrorIs(t, err, leave.ErrInvalidInput)
		assert.Equal(t, "Admin can only approve or reject leaves", leave.MessageOf(err))
	}

	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved"), Reason: ptr("rewrite")})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)

	got, err := f.svc.Get(ctx, f.admin, l.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Equal(t, "trip", got.Reason)
}

func TestUpdate_NoTransitionOutOfDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Rejected")})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	assert.ErrorIs(t, err, leave.ErrInvalidState)

	// Same status again only edits comments.
	updated, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{
		Status: ptr("Rejected"), ReviewComments: ptr("team is short-staffed"),
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, updated.Status)
	assert.Equal(t, "team is short-staffed", updated.ReviewComments)
}

func TestUpdate_ReviewCommentsTooLong(t *testing.T) {
	f := newFixture(t)
	l := f.create(t, f.alice, 5, 7, "trip")

	_, err := f.svc.Update(context.Background(), f.admin, l.ID, leave.UpdateInput{
		Status: ptr("Approved"), ReviewComments: ptr(strings.Repeat("c", 501)),
	})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestUpdate_OwnerEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	updated, err := f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{
		FromDate: ptr(day(6)),
		ToDate:   ptr(day(9)),
		Reason:   ptr("longer trip"),
	})
	require.NoError(t, err)
	assert.Equal(t, day(6), updated.FromDate.String())
	assert.Equal(t, day(9), updated.ToDate.String())
	assert.Equal(t, "longer trip", updated.Reason)
	assert.Equal(t, leave.StatusPending, updated.Status)

	// Empty strings leave fields untouched.
	updated, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{FromDate: ptr(""), Reason: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, day(6), updated.FromDate.String())
	assert.Equal(t, "longer trip", updated.Reason)
}

func TestUpdate_OwnerEditValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	_, err := f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{FromDate: ptr(day(-1))})
	assert.ErrorIs(t, err, leave.ErrDateRange)

	// Moving toDate before the stored fromDate.
	_, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{ToDate: ptr(day(4))})
	assert.ErrorIs(t, err, leave.ErrDateRange)

	// Moving fromDate past the stored toDate.
	_, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{FromDate: ptr(day(8))})
	assert.ErrorIs(t, err, leave.ErrDateRange)

	_, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)

	_, err = f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{Reason: ptr(strings.Repeat("r", 501))})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestUpdate_OwnerEditSkipsUnchangedPastFromDate(t *testing.T) {
	// GIVEN: A Pending leave that started yesterday (clock moved on)
	// WHEN: The owner edits only the reason
	// THEN: The stored fromDate is not re-validated
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 0, 3, "started")

	f.svc.Clock = func() time.Time { return testNow.AddDate(0, 0, 1) }

	updated, err := f.svc.Update(ctx, f.alice, l.ID, leave.UpdateInput{
		FromDate: ptr(day(0)),
		Reason:   ptr("still going"),
	})
	require.NoError(t, err)
	assert.Equal(t, "still going", updated.Reason)
}

func TestUpdate_OwnerEditDoesNotRecheckOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.alice, 5, 7, "first")
	second := f.create(t, f.alice, 10, 12, "second")

	_, err := f.svc.Update(ctx, f.alice, second.ID, leave.UpdateInput{FromDate: ptr(day(6))})
	assert.NoError(t, err)
}

func TestUpdate_NonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	_, err := f.svc.Update(ctx, f.bob, l.ID, leave.UpdateInput{Reason: ptr("mine now")})
	assert.ErrorIs(t, err, leave.ErrForbidden)

	_, err = f.svc.Update(ctx, f.bob, "missing", leave.UpdateInput{Reason: ptr("x")})
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_Owner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")

	assert.ErrorIs(t, f.svc.Delete(ctx, f.bob, l.ID), leave.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.alice, l.ID))

	_, err := f.svc.Get(ctx, f.alice, l.ID)
	assert.ErrorIs(t, err, leave.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice, l.ID), leave.ErrNotFound)
}

func TestDelete_OwnerCannotDeleteDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.create(t, f.alice, 5, 7, "trip")
	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.alice, l.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidState)
	assert.Equal(t, "You can only delete pending leave requests", leave.MessageOf(err))
}

func TestDelete_AdminAnyStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.create(t, f.alice, 1, 1, "p")
	approved := f.create(t, f.alice, 3, 3, "a")
	rejected := f.create(t, f.bob, 3, 3, "r")
	_, err := f.svc.Update(ctx, f.admin, approved.ID, leave.UpdateInput{Status: ptr("Approved")})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.admin, rejected.ID, leave.UpdateInput{Status: ptr("Rejected")})
	require.NoError(t, err)

	for _, id := range []leave.LeaveID{pending.ID, approved.ID, rejected.ID} {
		require.NoError(t, f.svc.Delete(ctx, f.admin, id))
	}

	all, err := f.svc.List(ctx, f.admin, leave.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

// =============================================================================
// STATS
// =============================================================================

func TestStats_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, f.alice, 1, 2, "two")
	l := f.create(t, f.bob, 1, 3, "three")
	_, err := f.svc.Update(ctx, f.admin, l.ID, leave.UpdateInput{Status: ptr("Approved")})
	require.NoError(t, err)

	_, err = f.svc.Stats(ctx, f.alice)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	st, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.ByStatus[leave.StatusPending])
	assert.Equal(t, 1, st.ByStatus[leave.StatusApproved])
	assert.Equal(t, 0, st.ByStatus[leave.StatusRejected])
	assert.Equal(t, 5, st.TotalDays)
	assert.Equal(t, "2.50", st.AverageDays.StringFixed(2))
}
