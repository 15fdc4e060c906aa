package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cipherline/internal/domain"
	"cipherline/internal/store"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{
		XPub:   domain.X25519Public{1},
		XPriv:  domain.X25519Private{2},
		EdPub:  domain.Ed25519Public{3},
		EdPriv: domain.Ed25519Private{4},
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got != id {
		t.Fatalf("mismatch after load")
	}

	info, err := os.Stat(filepath.Join(home, "identity.json.enc"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("identity file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{XPub: domain.X25519Public{1}, XPriv: domain.X25519Private{2}}

	if err := ids.SaveIdentity("correct", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if _, err := ids.LoadIdentity("x"); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestPrekeys_SignedLifecycle(t *testing.T) {
	ps := store.NewPrekeyFileStore(t.TempDir())

	if _, ok, err := ps.CurrentSignedPreKeyID(); err != nil || ok {
		t.Fatalf("fresh store current = %v, %v", ok, err)
	}

	id1, err := ps.NextSignedPreKeyID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	id2, err := ps.NextSignedPreKeyID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", id1, id2)
	}

	for _, id := range []domain.SignedPreKeyID{id2, id1} {
		pair := domain.SignedPreKeyPair{
			ID:        id,
			KeyPair:   domain.KeyPair{Public: domain.X25519Public{byte(id)}},
			Signature: []byte{0xAA},
			Timestamp: int64(id),
		}
		if err := ps.SaveSignedPreKey(pair); err != nil {
			t.Fatalf("save spk: %v", err)
		}
	}
	if err := ps.SetCurrentSignedPreKeyID(id2); err != nil {
		t.Fatalf("set current: %v", err)
	}
	cur, ok, err := ps.CurrentSignedPreKeyID()
	if err != nil || !ok || cur != id2 {
		t.Fatalf("current = %v %v %v", cur, ok, err)
	}

	list, err := ps.ListSignedPreKeys()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != id1 || list[1].ID != id2 {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := ps.RemoveSignedPreKey(id1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := ps.LoadSignedPreKey(id1); ok {
		t.Fatal("removed signed pre-key still present")
	}
	got, ok, err := ps.LoadSignedPreKey(id2)
	if err != nil || !ok || got.Timestamp != int64(id2) {
		t.Fatalf("load spk = %+v %v %v", got, ok, err)
	}
}

func TestPrekeys_OneTimeConsumedOnce(t *testing.T) {
	dir := t.TempDir()
	ps := store.NewPrekeyFileStore(dir)

	ids, err := ps.NextOneTimePreKeyIDs(3)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	pairs := make([]domain.OneTimePreKeyPair, 0, len(ids))
	for _, id := range ids {
		pairs = append(pairs, domain.OneTimePreKeyPair{
			ID:      id,
			KeyPair: domain.KeyPair{Private: domain.X25519Private{byte(id)}, Public: domain.X25519Public{byte(id)}},
		})
	}
	if err := ps.SaveOneTimePreKeys(pairs); err != nil {
		t.Fatalf("save: %v", err)
	}

	kp, ok, err := ps.LookupOneTimePreKey(ids[1])
	if err != nil || !ok || kp.Public != (domain.X25519Public{byte(ids[1])}) {
		t.Fatalf("lookup = %v %v %v", kp, ok, err)
	}
	if err := ps.MarkOneTimePreKeyConsumed(ids[1]); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, ok, _ := ps.LookupOneTimePreKey(ids[1]); ok {
		t.Fatal("consumed key still found")
	}
	if err := ps.MarkOneTimePreKeyConsumed(ids[1]); !errors.Is(err, store.ErrUnknownOneTimePreKey) {
		t.Fatalf("second consume err = %v", err)
	}

	pubs, err := ps.ListOneTimePreKeyPublics()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pubs) != 2 || pubs[0].ID != ids[0] || pubs[1].ID != ids[2] {
		t.Fatalf("unexpected publics %+v", pubs)
	}

	// A reopened store never reissues an id.
	more, err := store.NewPrekeyFileStore(dir).NextOneTimePreKeyIDs(1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if more[0] <= ids[2] {
		t.Fatalf("id %d reissued", more[0])
	}
}

func TestBundle_SaveLoad(t *testing.T) {
	bs := store.NewBundleFileStore(t.TempDir())
	if _, ok, err := bs.LoadPreKeyRegistration("alice"); err != nil || ok {
		t.Fatalf("empty store = %v %v", ok, err)
	}
	reg := domain.PreKeyRegistration{
		Bundle:         domain.PreKeyBundle{Username: "alice", SignedPreKeyID: 3},
		OneTimePreKeys: []domain.OneTimePreKeyPublic{{ID: 9}},
	}
	if err := bs.SavePreKeyRegistration(reg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := bs.LoadPreKeyRegistration("alice")
	if err != nil || !ok || got.Bundle.SignedPreKeyID != 3 || len(got.OneTimePreKeys) != 1 {
		t.Fatalf("load = %+v %v %v", got, ok, err)
	}
	if _, ok, _ := bs.LoadPreKeyRegistration("bob"); ok {
		t.Fatal("registration returned for another user")
	}
}

func TestSessions_SaveLoad(t *testing.T) {
	ss := store.NewSessionFileStore(t.TempDir())
	opk := domain.OneTimePreKeyID(5)
	sess := domain.Session{
		PeerUsername:   "bob",
		AssociatedData: []byte("ad"),
		PendingPreKey:  &domain.PreKeyMessage{SignedPreKeyID: 1, OneTimePreKeyID: &opk},
	}
	if err := ss.SaveSession("bob", sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := ss.LoadSession("bob")
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if got.PendingPreKey == nil || *got.PendingPreKey.OneTimePreKeyID != 5 {
		t.Fatalf("pending pre-key lost: %+v", got.PendingPreKey)
	}
	if _, ok, _ := ss.LoadSession("carol"); ok {
		t.Fatal("unexpected session for carol")
	}
}

func TestAccounts_SaveLoad(t *testing.T) {
	as := store.NewAccountFileStore(t.TempDir())
	p := domain.AccountProfile{ServerURL: "http://relay", Username: "alice", RegistrationID: 77, DeviceID: 1}
	if err := as.SaveAccountProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := as.LoadAccountProfile("http://relay/")
	if err != nil || !ok || got != p {
		t.Fatalf("load = %+v %v %v", got, ok, err)
	}
	if _, ok, _ := as.LoadAccountProfile("http://other"); ok {
		t.Fatal("profile leaked across relays")
	}

	// Registering again on the same relay replaces the account.
	p.Username = "alice2"
	if err := as.SaveAccountProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _, _ := as.LoadAccountProfile("http://relay"); got.Username != "alice2" {
		t.Fatalf("username = %q, want alice2", got.Username)
	}
}

func testRatchetStore(t *testing.T, rs domain.RatchetStore) {
	t.Helper()
	if _, ok, err := rs.LoadConversation("bob"); err != nil || ok {
		t.Fatalf("empty store = %v %v", ok, err)
	}
	conv := domain.Conversation{Peer: "bob", State: []byte{1, 2, 3}}
	if err := rs.SaveConversation("bob", conv); err != nil {
		t.Fatalf("save: %v", err)
	}
	conv.State = []byte{4, 5}
	if err := rs.SaveConversation("bob", conv); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := rs.LoadConversation("bob")
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if got.Peer != "bob" || string(got.State) != string([]byte{4, 5}) {
		t.Fatalf("unexpected conversation %+v", got)
	}
}

func TestRatchetFileStore(t *testing.T) {
	testRatchetStore(t, store.NewRatchetFileStore(t.TempDir()))
}

func TestRatchetBoltStore(t *testing.T) {
	dir := t.TempDir()
	rs, err := store.OpenRatchetBoltStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testRatchetStore(t, rs)
	if err := rs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// State survives reopening.
	rs, err = store.OpenRatchetBoltStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rs.Close()
	got, ok, err := rs.LoadConversation("bob")
	if err != nil || !ok || len(got.State) != 2 {
		t.Fatalf("after reopen = %+v %v %v", got, ok, err)
	}
}
