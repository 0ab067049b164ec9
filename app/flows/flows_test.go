package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const (
	userID  int64 = 100
	adminID int64 = 1
	superID int64 = 7
)

type sent struct {
	chatID int64
	text   string
	markup *tele.ReplyMarkup
}

type fakeOut struct {
	mu      sync.Mutex
	sent    []sent
	edits   []string
	answers []string
}

func (f *fakeOut) SendText(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID: chatID, text: text, markup: markup})
	return nil
}

func (f *fakeOut) EditText(_ context.Context, _ update.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeOut) AnswerCallback(_ context.Context, _ string, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeOut) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

func (f *fakeOut) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.text)
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]store.User
	videos  []store.Video
	admins  map[int64]bool
	nextID  int64
	failAdd error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]store.User{}, admins: map[int64]bool{}}
}

func (f *fakeStore) CreateUser(_ context.Context, id int64, name, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; ok {
		return store.ErrAlreadyExists
	}
	f.users[id] = store.User{TelegramID: id, FullName: name, Phone: phone}
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(context.Context) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateVideo(_ context.Context, title, link string) (store.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return store.Video{}, f.failAdd
	}
	f.nextID++
	v := store.Video{ID: f.nextID, Title: title, Link: link}
	f.videos = append(f.videos, v)
	return v, nil
}

func (f *fakeStore) ListVideos(context.Context) ([]store.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Video(nil), f.videos...), nil
}

func (f *fakeStore) GetVideoByTitle(_ context.Context, title string) (store.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.videos {
		if v.Title == title {
			return v, nil
		}
	}
	return store.Video{}, store.ErrNotFound
}

func (f *fakeStore) DeleteVideo(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.videos {
		if v.ID == id {
			f.videos = append(f.videos[:i], f.videos[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) AddAdmin(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[id] = true
	return nil
}

type fakeRoles struct {
	st *fakeStore
}

func (r fakeRoles) IsSuperAdmin(id int64) bool { return id == superID }

func (r fakeRoles) IsAdmin(_ context.Context, id int64) bool {
	if id == adminID || id == superID {
		return true
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.admins[id]
}

type fakeBroadcast struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeBroadcast) Enqueue(_ context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

type harness struct {
	out   *fakeOut
	st    *fakeStore
	bc    *fakeBroadcast
	reg   *conversation.MemoryRegistry
	disp  *conversation.Dispatcher
	upd   int
	t     *testing.T
	lastE error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out: &fakeOut{},
		st:  newFakeStore(),
		bc:  &fakeBroadcast{},
		reg: conversation.NewMemoryRegistry(),
		t:   t,
	}
	set, err := New(Deps{Store: h.st, Roles: fakeRoles{st: h.st}, Messenger: h.out, Broadcast: h.bc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.disp, err = conversation.NewDispatcher(conversation.Options{
		Registry: h.reg,
		Entries:  set.EntryPoints(),
		Flows:    set.Flows(),
		OnError:  set.OnError,
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return h
}

func (h *harness) send(ev update.Event) {
	h.upd++
	ev.UpdateID = h.upd
	if ev.ChatID == 0 {
		ev.ChatID = ev.SenderID
	}
	h.lastE = h.disp.Handle(context.Background(), ev)
}

func (h *harness) text(sender int64, s string) {
	h.send(update.Event{SenderID: sender, Kind: update.KindText, Text: s})
}

func (h *harness) command(sender int64, name, args string) {
	h.send(update.Event{SenderID: sender, Kind: update.KindCommand, Command: name, Args: args})
}

func (h *harness) contact(sender int64, phone string) {
	h.send(update.Event{SenderID: sender, Kind: update.KindContact, Phone: phone})
}

func (h *harness) callback(sender int64, key, payload string) {
	h.send(update.Event{
		SenderID:        sender,
		Kind:            update.KindCallback,
		CallbackID:      "cb",
		CallbackKey:     key,
		CallbackPayload: payload,
		Message:         update.MessageRef{ChatID: sender, MessageID: 42},
	})
}

func (h *harness) state(sender int64) conversation.Conversation {
	h.t.Helper()
	c, _, err := h.reg.Get(context.Background(), sender)
	if err != nil {
		h.t.Fatalf("registry get: %v", err)
	}
	return c
}

func (h *harness) wantState(sender int64, kind conversation.Kind, state conversation.State) {
	h.t.Helper()
	c := h.state(sender)
	if c.Kind != kind || c.State != state {
		h.t.Fatalf("conversation = %s/%s, want %s/%s", c.Kind, c.State, kind, state)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
		ok   bool
	}{
		"spaced plus":  {in: "+1 234 5678", want: "+12345678", ok: true},
		"seven digits": {in: "1234567", want: "1234567", ok: true},
		"six digits":   {in: "123-456", ok: false},
		"dashes":       {in: " 8 (900) 123-45-67 ", want: "89001234567", ok: true},
		"inner plus":   {in: "12+34567", want: "1234567", ok: true},
		"letters":      {in: "call me", ok: false},
	}
	for name, tc := range cases {
		got, ok := normalizePhone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: normalizePhone(%q) = %q, %v", name, tc.in, got, ok)
		}
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	h.wantState(userID, conversation.KindRegistration, conversation.AwaitingName)
	if h.out.last() != msgAskName {
		t.Fatalf("prompt = %q", h.out.last())
	}

	h.text(userID, "   ")
	h.wantState(userID, conversation.KindRegistration, conversation.AwaitingName)

	h.text(userID, "Alice")
	c := h.state(userID)
	if name, _ := c.Name(); c.State != conversation.AwaitingPhone || name != "Alice" {
		t.Fatalf("after name: %+v", c)
	}

	h.text(userID, "+1 234 5678")
	h.wantState(userID, conversation.KindRegistration, conversation.BrowsingMenu)
	u, err := h.st.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.FullName != "Alice" || u.Phone != "+12345678" {
		t.Fatalf("user = %+v", u)
	}
	if h.state(userID).Scratch != nil {
		t.Fatal("scratch survived registration")
	}
	if h.out.last() != msgNoVideosYet {
		t.Fatalf("menu = %q", h.out.last())
	}
}

func TestPhoneBoundary(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	h.text(userID, "Bob")

	h.text(userID, "123456")
	h.wantState(userID, conversation.KindRegistration, conversation.AwaitingPhone)
	if h.out.last() != msgBadPhone {
		t.Fatalf("reprompt = %q", h.out.last())
	}

	h.contact(userID, "1234567")
	h.wantState(userID, conversation.KindRegistration, conversation.BrowsingMenu)
	if u, _ := h.st.GetUserByID(context.Background(), userID); u.Phone != "1234567" {
		t.Fatalf("phone = %q", u.Phone)
	}
}

func TestContactPhoneKeptAsSent(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	h.text(userID, "Carol")

	h.contact(userID, "+44 20 79")
	h.wantState(userID, conversation.KindRegistration, conversation.AwaitingPhone)

	h.contact(userID, " +44 (20) 7946-0018 ")
	h.wantState(userID, conversation.KindRegistration, conversation.BrowsingMenu)
	if u, _ := h.st.GetUserByID(context.Background(), userID); u.Phone != "+44 (20) 7946-0018" {
		t.Fatalf("phone = %q", u.Phone)
	}
}

func TestKnownUserSkipsToMenu(t *testing.T) {
	h := newHarness(t)
	_ = h.st.CreateUser(context.Background(), userID, "Alice", "+12345678")
	_, _ = h.st.CreateVideo(context.Background(), "Intro", "linkA")

	h.command(userID, "start", "")
	h.wantState(userID, conversation.KindRegistration, conversation.BrowsingMenu)
	last := h.out.sent[len(h.out.sent)-1]
	if last.text != msgWelcomeBack || last.markup == nil {
		t.Fatalf("menu = %+v", last)
	}
}

func TestVideoLookupIsExact(t *testing.T) {
	h := newHarness(t)
	_ = h.st.CreateUser(context.Background(), userID, "Alice", "+12345678")
	_, _ = h.st.CreateVideo(context.Background(), "Intro", "linkA")
	h.command(userID, "start", "")
	before := len(h.out.texts())

	h.text(userID, "intro")
	if len(h.out.texts()) != before {
		t.Fatalf("lowercase title answered: %q", h.out.last())
	}

	h.text(userID, "Intro")
	if h.out.last() != "Here is your video:\nlinkA" {
		t.Fatalf("reply = %q", h.out.last())
	}

	h.text(userID, "  Intro \n")
	if h.out.last() != "Here is your video:\nlinkA" {
		t.Fatalf("padded title reply = %q", h.out.last())
	}
	before = len(h.out.texts())

	h.text(userID, LabelViewUsers)
	if len(h.out.texts()) != before {
		t.Fatalf("admin label answered in menu: %q", h.out.last())
	}

	h.text(userID, LabelRefreshVideos)
	if h.out.last() != msgRefreshed {
		t.Fatalf("refresh = %q", h.out.last())
	}
	h.wantState(userID, conversation.KindRegistration, conversation.BrowsingMenu)
}

func TestAdminEntryDeniedLeavesRegistry(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	h.text(userID, "Alice")
	want := h.state(userID)

	for _, ev := range []func(){
		func() { h.command(userID, "admin", "") },
		func() { h.command(userID, "addadmin", "5") },
	} {
		ev()
		if h.out.last() != msgAccessDenied {
			t.Fatalf("reply = %q", h.out.last())
		}
		got := h.state(userID)
		if got.Kind != want.Kind || got.State != want.State {
			t.Fatalf("registry changed: %+v", got)
		}
	}

	h.callback(userID, CallbackDeleteVideo, "1")
	if len(h.out.answers) == 0 || h.out.answers[len(h.out.answers)-1] != msgAccessDenied {
		t.Fatalf("answers = %v", h.out.answers)
	}
	if name, _ := h.state(userID).Name(); name != "Alice" {
		t.Fatal("scratch lost after denied callback")
	}
}

func TestAddVideoFlow(t *testing.T) {
	h := newHarness(t)
	h.command(adminID, "admin", "")
	h.wantState(adminID, conversation.KindAdminMenu, conversation.AtMenu)

	h.text(adminID, LabelAddVideo)
	h.wantState(adminID, conversation.KindAddVideo, conversation.AwaitingTitle)

	h.text(adminID, "")
	h.wantState(adminID, conversation.KindAddVideo, conversation.AwaitingTitle)

	h.text(adminID, "T")
	h.wantState(adminID, conversation.KindAddVideo, conversation.AwaitingLink)

	h.text(adminID, "L")
	h.wantState(adminID, conversation.KindAdminMenu, conversation.AtMenu)
	if h.state(adminID).Scratch != nil {
		t.Fatal("title scratch survived")
	}
	videos, _ := h.st.ListVideos(context.Background())
	if len(videos) != 1 || videos[0].Title != "T" || videos[0].Link != "L" {
		t.Fatalf("videos = %+v", videos)
	}
	if len(h.bc.msgs) != 1 || !strings.Contains(h.bc.msgs[0], "L") {
		t.Fatalf("broadcasts = %v", h.bc.msgs)
	}
	if h.out.last() != msgAdminPanel {
		t.Fatalf("last = %q", h.out.last())
	}
}

func TestAdminMenuLabelsAreTrimmed(t *testing.T) {
	h := newHarness(t)
	h.command(adminID, "admin", "")
	h.text(adminID, " "+LabelAddVideo+" ")
	h.wantState(adminID, conversation.KindAddVideo, conversation.AwaitingTitle)
}

func TestAdminRevokedMidFlow(t *testing.T) {
	const grantedID = int64(55)
	h := newHarness(t)
	h.st.admins[grantedID] = true

	h.command(grantedID, "admin", "")
	h.text(grantedID, LabelAddVideo)
	h.text(grantedID, "T")
	h.wantState(grantedID, conversation.KindAddVideo, conversation.AwaitingLink)

	h.st.mu.Lock()
	delete(h.st.admins, grantedID)
	h.st.mu.Unlock()

	h.text(grantedID, "L")
	if h.out.last() != msgAccessDenied {
		t.Fatalf("reply = %q", h.out.last())
	}
	if h.state(grantedID).Active() {
		t.Fatalf("conversation survived revocation: %+v", h.state(grantedID))
	}
	if videos, _ := h.st.ListVideos(context.Background()); len(videos) != 0 {
		t.Fatalf("videos = %+v", videos)
	}
	if len(h.bc.msgs) != 0 {
		t.Fatalf("broadcasts = %v", h.bc.msgs)
	}
}

func TestAddVideoPersistFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.st.failAdd = errors.New("db down")
	h.command(adminID, "admin", "")
	h.text(adminID, LabelAddVideo)
	h.text(adminID, "T")
	h.text(adminID, "L")

	if h.lastE == nil {
		t.Fatal("expected handler error")
	}
	if title, _ := h.state(adminID).Title(); title != "T" {
		t.Fatalf("state = %+v", h.state(adminID))
	}
	if h.out.last() != msgSomethingWrong {
		t.Fatalf("last = %q", h.out.last())
	}
	if len(h.bc.msgs) != 0 {
		t.Fatal("broadcast fired for unsaved video")
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	h.command(userID, "cancel", "")
	if h.state(userID).Active() || h.out.last() != msgCancelled {
		t.Fatalf("state = %+v, reply = %q", h.state(userID), h.out.last())
	}

	h.command(adminID, "admin", "")
	h.text(adminID, LabelAddVideo)
	h.command(adminID, "cancel", "")
	if h.state(adminID).Active() || h.out.last() != msgAdminClosed {
		t.Fatalf("state = %+v, reply = %q", h.state(adminID), h.out.last())
	}

	before := len(h.out.texts())
	h.command(userID, "cancel", "")
	if len(h.out.texts()) != before {
		t.Fatal("cancel with no conversation replied")
	}
}

func TestAdminListsAndDeletes(t *testing.T) {
	h := newHarness(t)
	_ = h.st.CreateUser(context.Background(), userID, "Alice", "+12345678")
	v, _ := h.st.CreateVideo(context.Background(), "Intro", "linkA")

	h.command(adminID, "admin", "")
	h.text(adminID, LabelViewUsers)
	if h.out.last() != "Name: Alice\nPhone: +12345678\nTelegram ID: 100" {
		t.Fatalf("card = %q", h.out.last())
	}
	h.text(adminID, LabelManageVideos)
	if h.out.last() != "Title: Intro\nLink: linkA" {
		t.Fatalf("card = %q", h.out.last())
	}

	h.callback(adminID, CallbackDeleteUser, "100")
	if _, err := h.st.GetUserByID(context.Background(), userID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	h.callback(adminID, CallbackDeleteVideo, "1")
	h.callback(adminID, CallbackDeleteVideo, "1")
	if h.lastE != nil {
		t.Fatalf("second delete: %v", h.lastE)
	}
	if got, _ := h.st.ListVideos(context.Background()); len(got) != 0 {
		t.Fatalf("video %d still present", v.ID)
	}
	want := []string{msgUserDeleted, msgVideoDeleted, msgVideoDeleted}
	if strings.Join(h.out.edits, "|") != strings.Join(want, "|") {
		t.Fatalf("edits = %v", h.out.edits)
	}
	h.wantState(adminID, conversation.KindAdminMenu, conversation.AtMenu)
}

func TestAddAdmin(t *testing.T) {
	h := newHarness(t)
	h.command(superID, "addadmin", "")
	if h.out.last() != msgAddAdminUsage {
		t.Fatalf("usage = %q", h.out.last())
	}
	h.command(superID, "addadmin", "abc")
	if h.out.last() != msgAddAdminUsage {
		t.Fatalf("usage = %q", h.out.last())
	}
	h.command(superID, "addadmin", "55")
	if h.out.last() != "Added admin: 55" {
		t.Fatalf("reply = %q", h.out.last())
	}

	h.command(55, "admin", "")
	h.wantState(55, conversation.KindAdminMenu, conversation.AtMenu)

	h.command(adminID, "addadmin", "56")
	if h.out.last() != msgAccessDenied {
		t.Fatalf("plain admin granted: %q", h.out.last())
	}
}

func TestStartSupersedesAdminFlow(t *testing.T) {
	h := newHarness(t)
	h.command(adminID, "admin", "")
	h.text(adminID, LabelAddVideo)
	h.text(adminID, "T")

	h.command(adminID, "start", "")
	h.wantState(adminID, conversation.KindRegistration, conversation.AwaitingName)
	if h.state(adminID).Scratch != nil {
		t.Fatal("title leaked into registration")
	}
}

func TestUnknownCommandMidFlowIsDropped(t *testing.T) {
	h := newHarness(t)
	h.command(userID, "start", "")
	before := len(h.out.texts())
	h.command(userID, "help", "")
	if len(h.out.texts()) != before {
		t.Fatalf("unknown command answered: %q", h.out.last())
	}
	h.wantState(userID, conversation.KindRegistration, conversation.AwaitingName)
}
