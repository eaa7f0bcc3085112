package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hadirapp/hadir/core/user"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	boss := env.createUser(t, "Boss", "boss@test.test", user.RoleOwner)

	inactive := env.createUser(t, "Gone", "gone@test.test", user.RoleOrganizer)
	isActive := false
	if _, err := env.usrSvc.Update(context.Background(), inactive.ID, user.UpdateUser{
		Name: inactive.Name, Email: inactive.Email, Role: inactive.Role, IsActive: &isActive,
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []httpTest{
		{
			name:     "invalid email",
			body:     marshallObj(t, LoginRequest{Email: "nope", Password: "s3cr3tPwd!"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown email",
			body:     marshallObj(t, LoginRequest{Email: "who@test.test", Password: "s3cr3tPwd!"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marshallObj(t, LoginRequest{Email: boss.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marshallObj(t, LoginRequest{Email: inactive.Email, Password: "s3cr3tPwd!"}),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "success",
			body:     marshallObj(t, LoginRequest{Email: "  Boss@Test.test ", Password: "s3cr3tPwd!"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/api/users/login"
			rec := env.do(tt)
			env.checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Token == "" {
					t.Errorf("login returned no token (body: %s)", rec.Body.String())
				}
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	boss := env.createUser(t, "Boss", "boss@test.test", user.RoleOwner)

	tt := httpTest{
		method:   http.MethodPost,
		path:     "/api/users/token-refresh",
		token:    getToken(t, boss),
		wantCode: http.StatusOK,
	}
	rec := env.do(tt)
	env.checkCodeAndData(t, tt, rec)

	var res LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Token == "" {
		t.Errorf("refresh returned no token (body: %s)", rec.Body.String())
	}
}

func Test_userApi_permissions(t *testing.T) {
	env := setup(t)
	clerk := env.createUser(t, "Clerk", "clerk@test.test", user.RoleDataEntry)

	tests := []httpTest{
		{
			name:     "auth required",
			path:     "/api/users",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "user management is owner-only",
			path:     "/api/users",
			token:    getToken(t, clerk),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "roles are owner-only too",
			path:     "/api/users/roles",
			token:    getToken(t, clerk),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.checkCodeAndData(t, tt, env.do(tt))
		})
	}
}

func Test_userApi_crud(t *testing.T) {
	env := setup(t)
	boss := env.createUser(t, "Boss", "boss@test.test", user.RoleOwner)
	token := getToken(t, boss)

	// create
	rec := env.do(httpTest{
		method: http.MethodPost,
		path:   "/api/users",
		token:  token,
		body:   marshallObj(t, user.NewUser{Name: "Clerk", Email: "clerk@test.test", Role: user.RoleDataEntry}),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var clerk user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &clerk); err != nil {
		t.Fatalf("decoding created user: %v", err)
	}
	if clerk.ID == "" || clerk.Role != user.RoleDataEntry {
		t.Errorf("created user = %+v", clerk)
	}

	// duplicate email is reported against the field
	tt := httpTest{
		method:   http.MethodPost,
		path:     "/api/users",
		token:    token,
		body:     marshallObj(t, user.NewUser{Name: "Clerk 2", Email: "clerk@test.test", Role: user.RoleDataEntry}),
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, map[string]string{"email": "a user with this email already exists"}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	// list
	rec = env.do(httpTest{path: "/api/users", token: token})
	var users []user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil || len(users) != 2 {
		t.Errorf("list = %s, want 2 users", rec.Body.String())
	}

	// retrieve unknown
	tt = httpTest{
		path:     "/api/users/nope",
		token:    token,
		wantCode: http.StatusNotFound,
		wantData: marshallObj(t, httpErr{Error: "user not found"}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	// update
	rec = env.do(httpTest{
		method: http.MethodPut,
		path:   "/api/users/" + clerk.ID,
		token:  token,
		body:   marshallObj(t, user.UpdateUser{Name: "Head Clerk"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil || updated.Name != "Head Clerk" {
		t.Errorf("update = %s, want name Head Clerk", rec.Body.String())
	}

	// demoting the only owner is refused
	tt = httpTest{
		method:   http.MethodPut,
		path:     "/api/users/" + boss.ID,
		token:    token,
		body:     marshallObj(t, user.UpdateUser{Role: user.RoleOrganizer}),
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, httpErr{Error: user.ErrLastOwner.Error()}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	// self-deletion is refused
	tt = httpTest{
		method:   http.MethodDelete,
		path:     "/api/users/" + boss.ID,
		token:    token,
		wantCode: http.StatusForbidden,
		wantData: marshallObj(t, httpErr{Error: "permission denied"}),
	}
	env.checkCodeAndData(t, tt, env.do(tt))

	// deleting another user works
	tt = httpTest{
		method:   http.MethodDelete,
		path:     "/api/users/" + clerk.ID,
		token:    token,
		wantCode: http.StatusNoContent,
	}
	env.checkCodeAndData(t, tt, env.do(tt))
}

func Test_userApi_queryRoles(t *testing.T) {
	env := setup(t)
	boss := env.createUser(t, "Boss", "boss@test.test", user.RoleOwner)

	tt := httpTest{
		path:     "/api/users/roles",
		token:    getToken(t, boss),
		wantCode: http.StatusOK,
		wantData: marshallObj(t, user.Roles),
	}
	env.checkCodeAndData(t, tt, env.do(tt))
}
