package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

var testNow = time.Date(2024, 4, 20, 9, 30, 15, 123456789, time.UTC)

func testOptions() Options {
	return Options{
		Retry: RetryPolicy{MaxAttempts: 1},
		Now:   func() time.Time { return testNow },
	}
}

// memDirectory is an in-memory RemoteDirectory with per-operation failure
// injection and call counting.
type memDirectory struct {
	mu     sync.Mutex
	docs   map[string]map[string]map[string]any
	nextID int
	calls  map[string]int
	fail   map[string]error
	sets   []setCall
}

type setCall struct {
	collection string
	id         string
	fields     map[string]any
	merge      bool
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		docs:  make(map[string]map[string]map[string]any),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (d *memDirectory) failOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op] = err
}

func (d *memDirectory) count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

func (d *memDirectory) put(collection, id string, fields map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.docs[collection] == nil {
		d.docs[collection] = make(map[string]map[string]any)
	}
	d.docs[collection][id] = copyFields(fields)
}

func (d *memDirectory) raw(collection, id string) (map[string]any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.docs[collection][id]
	if !ok {
		return nil, false
	}
	return copyFields(f), true
}

func (d *memDirectory) begin(op string) error {
	d.calls[op]++
	return d.fail[op]
}

func (d *memDirectory) GetDocument(_ context.Context, collection, id string) (*ports.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("get"); err != nil {
		return nil, err
	}
	f, ok := d.docs[collection][id]
	if !ok {
		return nil, ports.ErrDocumentNotFound
	}
	return &ports.Document{ID: id, Fields: copyFields(f)}, nil
}

func (d *memDirectory) SetDocument(_ context.Context, collection, id string, fields map[string]any, opts ports.SetOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("set"); err != nil {
		return err
	}
	d.sets = append(d.sets, setCall{collection: collection, id: id, fields: copyFields(fields), merge: opts.Merge})
	if d.docs[collection] == nil {
		d.docs[collection] = make(map[string]map[string]any)
	}
	existing, ok := d.docs[collection][id]
	if !opts.Merge || !ok {
		d.docs[collection][id] = copyFields(fields)
		return nil
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (d *memDirectory) AddDocument(_ context.Context, collection string, fields map[string]any) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("add"); err != nil {
		return "", err
	}
	d.nextID++
	id := fmt.Sprintf("%s-%d", collection, d.nextID)
	if d.docs[collection] == nil {
		d.docs[collection] = make(map[string]map[string]any)
	}
	d.docs[collection][id] = copyFields(fields)
	return id, nil
}

func (d *memDirectory) DeleteDocument(_ context.Context, collection, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("delete"); err != nil {
		return err
	}
	delete(d.docs[collection], id)
	return nil
}

func (d *memDirectory) Query(_ context.Context, collection string, filters ...ports.Filter) ([]ports.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("query"); err != nil {
		return nil, err
	}
	var out []ports.Document
	for id, f := range d.docs[collection] {
		match := true
		for _, flt := range filters {
			if f[flt.Field] != flt.Value {
				match = false
				break
			}
		}
		if match {
			out = append(out, ports.Document{ID: id, Fields: copyFields(f)})
		}
	}
	return out, nil
}

// fakeProvider records subscriptions and lets tests emit changes.
type fakeProvider struct {
	mu           sync.Mutex
	subs         map[int]func(domain.IdentityChange)
	next         int
	unsubscribed int

	signIn  func(email, password string) (*ports.Credential, error)
	signUp  func(email, password string) (*ports.Credential, error)
	signOut []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subs: make(map[int]func(domain.IdentityChange))}
}

func (p *fakeProvider) Subscribe(onChange func(domain.IdentityChange)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = onChange
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			p.unsubscribed++
		}
	}
}

func (p *fakeProvider) emit(change domain.IdentityChange) {
	p.mu.Lock()
	subs := make([]func(domain.IdentityChange), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (p *fakeProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*ports.Credential, error) {
	return p.signIn(email, password)
}

func (p *fakeProvider) SignUpWithPassword(_ context.Context, email, password string) (*ports.Credential, error) {
	return p.signUp(email, password)
}

func (p *fakeProvider) SignOut(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOut = append(p.signOut, userID)
	return nil
}

func credentialFor(id, email string) *ports.Credential {
	return &ports.Credential{
		Identity:  domain.RawIdentity{ID: id, Email: email, Provider: domain.ProviderPassword},
		Token:     "token-" + id,
		ExpiresAt: testNow.Add(time.Hour),
	}
}

func appointmentFields(userID, doctorID, date, tm string, status domain.AppointmentStatus) map[string]any {
	return domain.Appointment{
		UserID:          userID,
		DoctorID:        doctorID,
		DoctorInfo:      domain.DoctorInfo{Name: "Dr. Richard James", Speciality: "General physician"},
		AppointmentDate: date,
		AppointmentTime: tm,
		PatientInfo:     domain.PatientInfo{Name: "Alice", Email: "alice@example.com"},
		Status:          status,
		CreatedAt:       testNow.Truncate(time.Millisecond),
	}.Fields()
}

func bookingRequest(date, tm string) domain.BookingRequest {
	return domain.BookingRequest{
		Date:        date,
		Time:        tm,
		DoctorInfo:  domain.DoctorInfo{Name: "Dr. Richard James", Speciality: "General physician", Fees: 50},
		PatientInfo: domain.PatientInfo{Name: "Alice", Email: "alice@example.com", Phone: "555-0100"},
	}
}
