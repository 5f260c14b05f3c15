package justification

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct{ inserted []Justification }

func (f *fakeStore) Insert(_ context.Context, j *Justification) error {
	f.inserted = append(f.inserted, *j)
	return nil
}

func (f *fakeStore) List(context.Context, uint64, ListFilter) ([]Justification, error) {
	return nil, nil
}

func (f *fakeStore) Revoke(context.Context, uint64, string) (int64, error) { return 1, nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestCreateValidation(t *testing.T) {
	svc := &Service{id: ulidGen{}} // store は検証前には触らない

	tests := []struct {
		name string
		req  CreateJustificationRequest
	}{
		{"bad attendable type", CreateJustificationRequest{
			AttendableType: "ALIEN", AttendableID: 1, Type: TypeAbsence,
			DateFrom: "2025-04-10", DateTo: "2025-04-12", Reason: "x",
		}},
		{"bad justification type", CreateJustificationRequest{
			AttendableType: "STUDENT", AttendableID: 1, Type: "VACATION",
			DateFrom: "2025-04-10", DateTo: "2025-04-12", Reason: "x",
		}},
		{"malformed date_from", CreateJustificationRequest{
			AttendableType: "STUDENT", AttendableID: 1, Type: TypeAbsence,
			DateFrom: "10/04/2025", DateTo: "2025-04-12", Reason: "x",
		}},
		{"inverted range", CreateJustificationRequest{
			AttendableType: "STUDENT", AttendableID: 1, Type: TypeAbsence,
			DateFrom: "2025-04-12", DateTo: "2025-04-10", Reason: "x",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, "admin", tt.req)
			api, ok := err.(*APIError)
			if !ok || api.Code != CodeInvalidArgument {
				t.Fatalf("want INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestCreateStampsClock(t *testing.T) {
	now := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	st := &fakeStore{}
	svc := &Service{store: st, id: ulidGen{}, clock: fixedClock{now: now}}

	res, err := svc.Create(context.Background(), 1, "admin", CreateJustificationRequest{
		AttendableType: "STUDENT", AttendableID: 7, Type: TypeAbsence,
		DateFrom: "2025-04-10", DateTo: "2025-04-12", Reason: "viaje familiar",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want injected clock %v", res.CreatedAt, now)
	}
	if len(st.inserted) != 1 || st.inserted[0].ULID != res.ULID {
		t.Errorf("inserted = %+v", st.inserted)
	}
}

func TestValidType(t *testing.T) {
	for _, v := range []string{TypeAbsence, TypeEarlyExit, TypeLate} {
		if !ValidType(v) {
			t.Errorf("%s should be valid", v)
		}
	}
	if ValidType("SICK") {
		t.Error("SICK should not be valid")
	}
}
