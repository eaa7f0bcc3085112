package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/user"
	emailsvc "github.com/hadirapp/hadir/services/email"
	logsvc "github.com/hadirapp/hadir/services/logger"
	dummydb "github.com/hadirapp/hadir/storage/database/dummy"
)

type testEnv struct {
	server Server
	usrSvc user.Service
	attSvc attendee.Service
}

func setup(t *testing.T) *testEnv {
	conf, err := core.NewConfig()
	require.NoError(t, err)
	conf.Debug = false
	conf.TestMode = true

	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(dummydb.NewUserRepository(db), conf)
	attSvc := attendee.NewService(dummydb.NewAttendeeRepository(db), dummydb.NewLogRepository(db), mailSvc, conf)

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))

	server := NewServer(&Options{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		AttendeeSvc:    attSvc,
		Validate:       validate,
		Translator:     translator,
		Logger:         logger,
	})
	return &testEnv{server: server, usrSvc: usrSvc, attSvc: attSvc}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type httpErr struct {
	Error string `json:"error"`
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func (env *testEnv) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, tt.path, bytes.NewReader(tt.body))
	req.Header.Set("Content-Type", "application/json")
	if tt.token != "" {
		req.Header.Set("Authorization", "Bearer "+tt.token)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("code = %d, want %d (body: %s)", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		if equal, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData); err != nil || !equal {
			t.Errorf("body = %s, want %s", rec.Body.String(), tt.wantData)
		}
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return jsonEqual(j1, j2), nil
}

func jsonEqual(j1, j2 interface{}) bool {
	b1, err1 := json.Marshal(j1)
	b2, err2 := json.Marshal(j2)
	return err1 == nil && err2 == nil && bytes.Equal(b1, b2)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Role:     role,
		Password: "s3cr3tPwd!",
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) registerAttendee(t *testing.T, name, phone string) attendee.Attendee {
	t.Helper()
	att, err := env.attSvc.Register(context.Background(), attendee.NewAttendee{
		Name:          name,
		PhonePrimary:  phone,
		Governorate:   attendee.GovMinya,
		SeatClass:     attendee.SeatClassB,
		Status:        attendee.StatusRegistered,
		PaymentType:   attendee.PaymentDeposit,
		PaymentAmount: 500,
	}, "usr1")
	require.NoError(t, err)
	return att
}
