package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/user"
)

func newAttendeeBody(t *testing.T, name, phone string) []byte {
	t.Helper()
	return marshallObj(t, attendee.NewAttendee{
		Name:          name,
		PhonePrimary:  phone,
		Governorate:   attendee.GovMinya,
		SeatClass:     attendee.SeatClassB,
		Status:        attendee.StatusRegistered,
		PaymentType:   attendee.PaymentDeposit,
		PaymentAmount: 500,
	})
}

func Test_attendeeApi_register(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)
	organizer := env.createUser(t, "Usher", "usher@test.test", user.RoleOrganizer)
	env.registerAttendee(t, "Mina Adel", "01200000001")

	tests := []httpTest{
		{
			name:     "auth required",
			body:     newAttendeeBody(t, "Sara Samir", "01200000002"),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "organizers cannot register",
			body:     newAttendeeBody(t, "Sara Samir", "01200000002"),
			token:    getToken(t, organizer),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "missing fields",
			body:     marshallObj(t, attendee.NewAttendee{Name: "Sara Samir"}),
			token:    getToken(t, clerk),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "duplicate name",
			body:     newAttendeeBody(t, "mina adel", "01200000009"),
			token:    getToken(t, clerk),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"full_name": attendee.ErrNameExists.Error()}),
		},
		{
			name:     "duplicate phone",
			body:     newAttendeeBody(t, "Someone Else", "01200000001"),
			token:    getToken(t, clerk),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"phone_primary": attendee.ErrPhoneExists.Error()}),
		},
		{
			name:     "success",
			body:     newAttendeeBody(t, "Sara Samir", "01200000002"),
			token:    getToken(t, clerk),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/attendees"
			rec := env.do(tt)
			env.checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var att attendee.Attendee
				if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
					t.Fatalf("decoding attendee: %v", err)
				}
				if att.ID == "" || att.QRCode == "" || att.Barcode == "" {
					t.Errorf("register left codes unset: %+v", att)
				}
				if att.RemainingAmount != 1200 {
					t.Errorf("RemainingAmount = %d, want 1200", att.RemainingAmount)
				}
				if att.CreatedBy != clerk.ID {
					t.Errorf("CreatedBy = %s, want %s", att.CreatedBy, clerk.ID)
				}
			}
		})
	}
}

func Test_attendeeApi_query(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)
	token := getToken(t, clerk)

	mina := env.registerAttendee(t, "Mina Adel", "01200000001")
	env.registerAttendee(t, "Sara Samir", "01200000002")
	trashed := env.registerAttendee(t, "Gone Guy", "01200000003")
	if err := env.attSvc.SoftDelete(context.Background(), trashed.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	list := func(t *testing.T, path string) []attendee.Attendee {
		t.Helper()
		rec := env.do(httpTest{path: path, token: token})
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d (body: %s)", rec.Code, rec.Body.String())
		}
		var attendees []attendee.Attendee
		if err := json.Unmarshal(rec.Body.Bytes(), &attendees); err != nil {
			t.Fatalf("decoding attendees: %v", err)
		}
		return attendees
	}

	if got := list(t, "/api/attendees"); len(got) != 2 {
		t.Errorf("active list = %d attendees, want 2", len(got))
	}
	if got := list(t, "/api/attendees?trash=true"); len(got) != 1 || got[0].ID != trashed.ID {
		t.Errorf("trash list = %+v, want only %s", got, trashed.ID)
	}
	if got := list(t, "/api/attendees?search=mina"); len(got) != 1 || got[0].ID != mina.ID {
		t.Errorf("search list = %+v, want only %s", got, mina.ID)
	}
	if got := list(t, "/api/attendees?seat_class=A"); len(got) != 0 {
		t.Errorf("seat class A list = %d attendees, want 0", len(got))
	}
}

func Test_attendeeApi_retrieve(t *testing.T) {
	env := setup(t)
	organizer := env.createUser(t, "Usher", "usher@test.test", user.RoleOrganizer)
	att := env.registerAttendee(t, "Mina Adel", "01200000001")

	tests := []httpTest{
		{
			name:     "found",
			path:     "/api/attendees/" + att.ID,
			token:    getToken(t, organizer),
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown id",
			path:     "/api/attendees/nope",
			token:    getToken(t, organizer),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "attendee not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_attendeeApi_update(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)
	att := env.registerAttendee(t, "Mina Adel", "01200000001")

	rec := env.do(httpTest{
		method: http.MethodPut,
		path:   "/api/attendees/" + att.ID,
		token:  getToken(t, clerk),
		body:   marshallObj(t, attendee.UpdateAttendee{SeatClass: attendee.SeatClassA}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated attendee.Attendee
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding attendee: %v", err)
	}
	if updated.SeatClass != attendee.SeatClassA {
		t.Errorf("SeatClass = %s, want A", updated.SeatClass)
	}
	// upgrading the seat recomputes what is still owed
	if updated.RemainingAmount != 1500 {
		t.Errorf("RemainingAmount = %d, want 1500", updated.RemainingAmount)
	}
	if updated.Name != att.Name {
		t.Errorf("Name = %s, want unchanged %s", updated.Name, att.Name)
	}
}

func Test_attendeeApi_deleteRestoreDestroy(t *testing.T) {
	env := setup(t)
	boss := env.createUser(t, "Boss", "boss@test.test", user.RoleOwner)
	organizer := env.createUser(t, "Usher", "usher@test.test", user.RoleOrganizer)
	att := env.registerAttendee(t, "Mina Adel", "01200000001")
	token := getToken(t, boss)

	// soft delete
	tt := httpTest{
		method:   http.MethodDelete,
		path:     "/api/attendees/" + att.ID,
		token:    token,
		wantCode: http.StatusNoContent,
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	// restore returns the record
	rec := env.do(httpTest{
		method: http.MethodPatch,
		path:   "/api/attendees/" + att.ID + "/restore",
		token:  token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("restore code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var restored attendee.Attendee
	if err := json.Unmarshal(rec.Body.Bytes(), &restored); err != nil || restored.IsDeleted {
		t.Errorf("restore = %s, want is_deleted false", rec.Body.String())
	}

	// permanent deletion is owner-only
	tt = httpTest{
		method:   http.MethodDelete,
		path:     "/api/attendees/" + att.ID + "/permanent",
		token:    getToken(t, organizer),
		wantCode: http.StatusForbidden,
		wantData: marshallObj(t, httpErr{Error: "permission denied"}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	tt = httpTest{
		method:   http.MethodDelete,
		path:     "/api/attendees/" + att.ID + "/permanent",
		token:    token,
		wantCode: http.StatusNoContent,
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	tt = httpTest{
		path:     "/api/attendees/" + att.ID,
		token:    token,
		wantCode: http.StatusNotFound,
		wantData: marshallObj(t, httpErr{Error: "attendee not found"}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))
}

func Test_attendeeApi_toggleAttendance(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)
	att := env.registerAttendee(t, "Mina Adel", "01200000001")
	token := getToken(t, clerk)

	toggle := func(t *testing.T) attendee.Attendee {
		t.Helper()
		rec := env.do(httpTest{
			method: http.MethodPatch,
			path:   "/api/attendees/" + att.ID + "/toggle-attendance",
			token:  token,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle code = %d (body: %s)", rec.Code, rec.Body.String())
		}
		var got attendee.Attendee
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decoding attendee: %v", err)
		}
		return got
	}

	got := toggle(t)
	if !got.AttendanceStatus || got.CheckedInBy != attendee.CheckedInByManual {
		t.Errorf("toggle on = %+v, want present, checked in by manual", got)
	}
	got = toggle(t)
	if got.AttendanceStatus || got.CheckedInAt != nil || got.CheckedInBy != "" {
		t.Errorf("toggle off = %+v, want attendance cleared", got)
	}
}

func Test_attendeeApi_checkin(t *testing.T) {
	env := setup(t)
	organizer := env.createUser(t, "Usher", "usher@test.test", user.RoleOrganizer)
	att := env.registerAttendee(t, "Mina Adel", "01200000001")
	token := getToken(t, organizer)

	checkin := func(t *testing.T, code string, wantCode int) *attendee.CheckinResult {
		t.Helper()
		rec := env.do(httpTest{
			method: http.MethodPost,
			path:   "/api/checkin",
			token:  token,
			body:   marshallObj(t, CheckinRequest{Code: code}),
		})
		if rec.Code != wantCode {
			t.Fatalf("checkin(%s) code = %d, want %d (body: %s)", code, rec.Code, wantCode, rec.Body.String())
		}
		if wantCode != http.StatusOK {
			return nil
		}
		res := new(attendee.CheckinResult)
		if err := json.Unmarshal(rec.Body.Bytes(), res); err != nil {
			t.Fatalf("decoding checkin result: %v", err)
		}
		return res
	}

	// missing code fails validation
	checkin(t, "", http.StatusBadRequest)
	// unknown code
	checkin(t, "nope", http.StatusNotFound)

	res := checkin(t, att.QRCode, http.StatusOK)
	if res.Status != attendee.CheckinSuccess {
		t.Errorf("Status = %s, want %s", res.Status, attendee.CheckinSuccess)
	}
	if !res.Attendee.AttendanceStatus || res.Attendee.CheckedInBy != organizer.ID {
		t.Errorf("Attendee = %+v, want present, checked in by %s", res.Attendee, organizer.ID)
	}

	// a repeat scan is non-fatal
	res = checkin(t, att.Barcode, http.StatusOK)
	if res.Status != attendee.CheckinAlreadyChecked {
		t.Errorf("Status = %s, want %s", res.Status, attendee.CheckinAlreadyChecked)
	}

	// each successful check-in leaves exactly one log entry
	rec := env.do(httpTest{path: "/api/attendees/" + att.ID + "/logs", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("logs code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var logs []attendee.Log
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decoding logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != attendee.ActionCheckIn || logs[0].RecordedBy != organizer.ID {
		t.Errorf("logs = %+v, want one check_in by %s", logs, organizer.ID)
	}
}

func Test_attendeeApi_bulkImport(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)
	env.registerAttendee(t, "Mina Adel", "01200000001")

	body := marshallObj(t, BulkImportRequest{Attendees: []attendee.NewAttendee{
		{ // valid
			Name: "Sara Samir", PhonePrimary: "01200000002",
			Governorate: attendee.GovSohag, SeatClass: attendee.SeatClassC,
			Status: attendee.StatusInterested,
		},
		{ // malformed: no phone
			Name:        "No Phone",
			Governorate: attendee.GovMinya, SeatClass: attendee.SeatClassA,
			Status: attendee.StatusRegistered,
		},
		{ // duplicate of an existing attendee
			Name: "Mina Adel", PhonePrimary: "01200000003",
			Governorate: attendee.GovMinya, SeatClass: attendee.SeatClassB,
			Status: attendee.StatusRegistered,
		},
	}})

	rec := env.do(httpTest{
		method: http.MethodPost,
		path:   "/api/attendees/import",
		token:  getToken(t, clerk),
		body:   body,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("import code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var res attendee.BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding import result: %v", err)
	}
	if res.Created != 1 || res.Skipped != 2 {
		t.Errorf("import = %d created, %d skipped; want 1, 2", res.Created, res.Skipped)
	}
}

func Test_attendeeApi_statsAndOptions(t *testing.T) {
	env := setup(t)
	organizer := env.createUser(t, "Usher", "usher@test.test", user.RoleOrganizer)
	env.registerAttendee(t, "Mina Adel", "01200000001")
	env.registerAttendee(t, "Sara Samir", "01200000002")
	token := getToken(t, organizer)

	rec := env.do(httpTest{path: "/api/attendees/stats", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("stats code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var stats attendee.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Total != 2 || stats.ByGovernorate[attendee.GovMinya] != 2 {
		t.Errorf("stats = %+v, want 2 attendees in Minya", stats)
	}

	tt := httpTest{
		path:     "/api/attendees/options",
		token:    token,
		wantCode: http.StatusOK,
		wantData: marshallObj(t, OptionsResponse{
			Governorates: attendee.Governorates,
			SeatPrices:   attendee.SeatPrices,
		}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))
}
