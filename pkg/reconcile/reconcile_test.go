package reconcile

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/feed"
)

func exampleFeeds() feed.Feeds {
	return feed.Feeds{
		Mosques: []directory.Mosque{
			{ID: "m1", Name: "Al-Noor"},
			{ID: "m2", Name: "Al-Huda"},
		},
		Approved: []directory.Admin{{ID: "a1", MosqueID: "m1", Name: "Ali", Status: directory.AdminApproved}},
		Pending:  []directory.Admin{{ID: "a2", MosqueID: "m2", Name: "Sara", Status: directory.AdminPending}},
	}
}

func TestReconcileExampleScenario(t *testing.T) {
	views := Reconcile(exampleFeeds())
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}

	m1, m2 := views[0], views[1]
	if m1.ID != "m1" || m1.Status != directory.StatusApproved || m1.ApprovedAdmin == nil || m1.ApprovedAdmin.Name != "Ali" {
		t.Errorf("m1: %+v", m1)
	}
	if len(m1.PendingAdmins) != 0 || m1.PendingAdmins == nil {
		t.Errorf("m1 pending should be empty, non-nil: %#v", m1.PendingAdmins)
	}
	if m2.ID != "m2" || m2.Status != directory.StatusNoAdmin || m2.ApprovedAdmin != nil {
		t.Errorf("m2: %+v", m2)
	}
	if len(m2.PendingAdmins) != 1 || m2.PendingAdmins[0].Name != "Sara" {
		t.Errorf("m2 pending: %+v", m2.PendingAdmins)
	}
}

func TestReconcileMosqueWithoutAdmins(t *testing.T) {
	views := Reconcile(feed.Feeds{Mosques: []directory.Mosque{{ID: "lonely"}}})
	want := []directory.MosqueView{{
		Mosque:         directory.Mosque{ID: "lonely"},
		Status:         directory.StatusNoAdmin,
		PendingAdmins:  []directory.Admin{},
		RejectedAdmins: []directory.Admin{},
	}}
	if !reflect.DeepEqual(views, want) {
		t.Fatalf("got %#v", views)
	}
}

func TestReconcileRejectedFanOut(t *testing.T) {
	f := feed.Feeds{
		Mosques: []directory.Mosque{{ID: "X"}, {ID: "Y"}, {ID: "Z"}},
		Rejected: []directory.Admin{
			{ID: "r1", PreviousMosqueIDs: []string{"X", "Y", "X"}, Status: directory.AdminRejected},
			{ID: "r2", PreviousMosqueIDs: []string{"Y"}, Status: directory.AdminRejected},
		},
	}
	views := Reconcile(f)

	got := map[string][]string{}
	for _, v := range views {
		for _, a := range v.RejectedAdmins {
			got[v.ID] = append(got[v.ID], a.ID)
		}
	}
	want := map[string][]string{"X": {"r1"}, "Y": {"r1", "r2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rejected fan-out = %v, want %v", got, want)
	}
}

func TestReconcileDropsUnmatchedAndNormalizesIDs(t *testing.T) {
	f := feed.Feeds{
		Mosques:  []directory.Mosque{{ID: "m1"}},
		Approved: []directory.Admin{{ID: "a1", MosqueID: " m1 "}, {ID: "ghost", MosqueID: "m404"}},
		Pending:  []directory.Admin{{ID: "p1", MosqueID: "m404"}, {ID: "p2", MosqueID: ""}},
	}
	views := Reconcile(f)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].ApprovedAdmin == nil || views[0].ApprovedAdmin.ID != "a1" {
		t.Fatalf("approved admin not matched after trimming: %+v", views[0])
	}
	if len(views[0].PendingAdmins) != 0 {
		t.Fatalf("unmatched pending admin leaked: %+v", views[0].PendingAdmins)
	}
}

func TestReconcileDuplicateApprovedLastWins(t *testing.T) {
	var dupes []string
	r := Reconciler{OnDuplicateApproved: func(id string, replaced, kept directory.Admin) {
		dupes = append(dupes, fmt.Sprintf("%s:%s->%s", id, replaced.ID, kept.ID))
	}}
	views := r.Reconcile(feed.Feeds{
		Mosques:  []directory.Mosque{{ID: "m1"}},
		Approved: []directory.Admin{{ID: "a1", MosqueID: "m1"}, {ID: "a2", MosqueID: "m1"}},
	})
	if views[0].ApprovedAdmin.ID != "a2" {
		t.Fatalf("expected last approved admin to win, got %s", views[0].ApprovedAdmin.ID)
	}
	if !reflect.DeepEqual(dupes, []string{"m1:a1->a2"}) {
		t.Fatalf("duplicate hook calls = %v", dupes)
	}
}

func TestReconcilePendingOrderFollowsFeed(t *testing.T) {
	views := Reconcile(feed.Feeds{
		Mosques: []directory.Mosque{{ID: "m1"}},
		Pending: []directory.Admin{{ID: "p3", MosqueID: "m1"}, {ID: "p1", MosqueID: "m1"}, {ID: "p2", MosqueID: "m1"}},
	})
	var ids []string
	for _, a := range views[0].PendingAdmins {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []string{"p3", "p1", "p2"}) {
		t.Fatalf("pending order = %v", ids)
	}
}

func randomFeeds(rng *rand.Rand) feed.Feeds {
	var f feed.Feeds
	nm := rng.Intn(8)
	for i := 0; i < nm; i++ {
		f.Mosques = append(f.Mosques, directory.Mosque{ID: fmt.Sprintf("m%d", i)})
	}
	ref := func() string { return fmt.Sprintf("m%d", rng.Intn(nm+3)) }
	na := rng.Intn(6)
	for i := 0; i < na; i++ {
		f.Approved = append(f.Approved, directory.Admin{ID: fmt.Sprintf("a%d", i), MosqueID: ref(), Status: directory.AdminApproved})
	}
	np := rng.Intn(6)
	for i := 0; i < np; i++ {
		f.Pending = append(f.Pending, directory.Admin{ID: fmt.Sprintf("p%d", i), MosqueID: ref(), Status: directory.AdminPending})
	}
	nr := rng.Intn(4)
	for i := 0; i < nr; i++ {
		f.Rejected = append(f.Rejected, directory.Admin{ID: fmt.Sprintf("r%d", i), PreviousMosqueIDs: []string{ref(), ref()}, Status: directory.AdminRejected})
	}
	return f
}

func TestReconcileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		f := randomFeeds(rng)
		views := Reconcile(f)

		// Completeness: one view per mosque, same order.
		if len(views) != len(f.Mosques) {
			t.Fatalf("iter %d: %d views for %d mosques", iter, len(views), len(f.Mosques))
		}
		for i := range views {
			if views[i].ID != f.Mosques[i].ID {
				t.Fatalf("iter %d: view %d has id %s, want %s", iter, i, views[i].ID, f.Mosques[i].ID)
			}
		}

		// Status correctness.
		for _, v := range views {
			has := false
			for _, a := range f.Approved {
				if a.MosqueID == v.ID {
					has = true
				}
			}
			if (v.Status == directory.StatusApproved) != has {
				t.Fatalf("iter %d: mosque %s status %s, approved admin present=%t", iter, v.ID, v.Status, has)
			}
		}

		// Idempotence.
		if again := Reconcile(f); !reflect.DeepEqual(views, again) {
			t.Fatalf("iter %d: reconcile is not idempotent", iter)
		}
	}
}
