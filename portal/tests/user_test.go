package tests

import (
	"errors"
	"testing"
)

func TestSignupLoginFlow(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()

	login, err := c.signup("newuser", "newuser@mail.com", "newuser_password")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.login(login); err != nil {
		t.Fatal(err)
	}

	var info map[string]interface{}
	if err := c.Get("/user/info").Do(&info); err != nil {
		t.Fatal(err)
	}
	if info["username"] != "newuser" {
		t.Fatalf("expected username newuser, got %v", info["username"])
	}
	if info["is_admin"] != false {
		t.Fatal("signup should not grant admin")
	}
}

func TestDuplicateSignupRejected(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()

	if _, err := c.signup("dupuser", "dupuser@mail.com", "password1"); err != nil {
		t.Fatal(err)
	}

	_, err := c.signup("dupuser", "other@mail.com", "password2")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}

	_, err = c.signup("otheruser", "dupuser@mail.com", "password3")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()

	err := c.Get("/leave/list").Do(nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}

	var res map[string]string
	err = c.Post("/contractor/create").Json(map[string]string{"company_name": "X", "business_license": "Y"}).Do(&res)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}
}

func TestUserDeleteRequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)

	first, err := env.newUser("firstuser")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.newUser("seconduser")
	if err != nil {
		t.Fatal(err)
	}

	if err := first.deleteUser(second.userId); err == nil {
		t.Fatal("expected non-admin delete to be rejected")
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	if err := admin.deleteUser(second.userId); err != nil {
		t.Fatal(err)
	}

	users := []map[string]interface{}{}
	if err := admin.Get("/user/list").Do(&users); err != nil {
		t.Fatal(err)
	}
	for _, user := range users {
		if user["username"] == "seconduser" {
			t.Fatal("deleted user still listed")
		}
	}
}
