package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fieldops_portal/portal/services"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return ErrConflict
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(username, email, password string) (loginInfo, error) {
	body := map[string]string{
		"email": email, "username": username, "password": password,
	}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Post("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) deleteUser(userId string) error {
	return c.Delete(fmt.Sprintf("/user/%v", userId)).Do(nil)
}

func (c *client) createProject(name string) (string, error) {
	var res map[string]string
	err := c.Post("/project/create").Json(map[string]string{"name": name}).Do(&res)
	return res["project_id"], err
}

func (c *client) createContractor(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/contractor/create").Json(body).Do(&res)
	return res["contractor_id"], err
}

func (c *client) getContractor(id string) (services.ContractorInfo, error) {
	var res services.ContractorInfo
	err := c.Get(fmt.Sprintf("/contractor/%v/", id)).Do(&res)
	return res, err
}

func (c *client) contractorStats() (services.ContractorStats, error) {
	var res services.ContractorStats
	err := c.Get("/contractor/stats").Do(&res)
	return res, err
}

func (c *client) createFiberTeam(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/fiber-team/create").Json(body).Do(&res)
	return res["team_id"], err
}

func (c *client) getFiberTeam(id string) (services.FiberTeamInfo, error) {
	var res services.FiberTeamInfo
	err := c.Get(fmt.Sprintf("/fiber-team/%v/", id)).Do(&res)
	return res, err
}

func (c *client) fiberTeamStats() (services.FiberTeamStats, error) {
	var res services.FiberTeamStats
	err := c.Get("/fiber-team/stats").Do(&res)
	return res, err
}

func (c *client) createLeave(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/leave/create").Json(body).Do(&res)
	return res["request_id"], err
}

func (c *client) getLeave(id string) (services.LeaveRequestInfo, error) {
	var res services.LeaveRequestInfo
	err := c.Get(fmt.Sprintf("/leave/%v/", id)).Do(&res)
	return res, err
}

func (c *client) listLeave(query string) ([]services.LeaveRequestInfo, error) {
	var res []services.LeaveRequestInfo
	err := c.Get("/leave/list" + query).Do(&res)
	return res, err
}

func (c *client) leaveStats() (services.LeaveStats, error) {
	var res services.LeaveStats
	err := c.Get("/leave/stats").Do(&res)
	return res, err
}

func (c *client) createTraining(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/training/create").Json(body).Do(&res)
	return res["request_id"], err
}

func (c *client) getTraining(id string) (services.TrainingRequestInfo, error) {
	var res services.TrainingRequestInfo
	err := c.Get(fmt.Sprintf("/training/%v/", id)).Do(&res)
	return res, err
}

func (c *client) createProcurement(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/procurement/create").Json(body).Do(&res)
	return res["log_id"], err
}

func (c *client) getProcurement(id string) (services.ProcurementLogInfo, error) {
	var res services.ProcurementLogInfo
	err := c.Get(fmt.Sprintf("/procurement/%v/", id)).Do(&res)
	return res, err
}

func (c *client) procurementStats() (services.ProcurementStats, error) {
	var res services.ProcurementStats
	err := c.Get("/procurement/stats").Do(&res)
	return res, err
}

func (c *client) createHRDocument(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/hr-document/create").Json(body).Do(&res)
	return res["document_id"], err
}

func (c *client) listHRDocuments(query string) ([]services.HRDocumentInfo, error) {
	var res []services.HRDocumentInfo
	err := c.Get("/hr-document/list" + query).Do(&res)
	return res, err
}

func (c *client) expiringHRDocuments(query string) ([]services.HRDocumentInfo, error) {
	var res []services.HRDocumentInfo
	err := c.Get("/hr-document/expiring" + query).Do(&res)
	return res, err
}

func (c *client) expiredHRDocuments() ([]services.HRDocumentInfo, error) {
	var res []services.HRDocumentInfo
	err := c.Get("/hr-document/expired").Do(&res)
	return res, err
}

func (c *client) hrDocumentStats() (services.HRDocumentStats, error) {
	var res services.HRDocumentStats
	err := c.Get("/hr-document/stats").Do(&res)
	return res, err
}

func (c *client) createShift(body map[string]interface{}) (string, error) {
	var res map[string]string
	err := c.Post("/shift/create").Json(body).Do(&res)
	return res["shift_id"], err
}

func (c *client) getShift(id string) (services.ShiftInfo, error) {
	var res services.ShiftInfo
	err := c.Get(fmt.Sprintf("/shift/%v/", id)).Do(&res)
	return res, err
}

func (c *client) shiftStats() (services.ShiftStats, error) {
	var res services.ShiftStats
	err := c.Get("/shift/stats").Do(&res)
	return res, err
}

// uploadProjectDocument builds the multipart form the upload endpoint expects.
func (c *client) uploadProjectDocument(projectId, documentType, title, filename string, content []byte) (string, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)

	for key, value := range map[string]string{"project_id": projectId, "document_type": documentType, "title": title} {
		if err := form.WriteField(key, value); err != nil {
			return "", err
		}
	}

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	var res map[string]string
	err = c.Post("/project-document/upload").
		Header("Content-Type", form.FormDataContentType()).
		Body(body).
		Do(&res)
	return res["document_id"], err
}

func (c *client) downloadProjectDocument(documentId string) ([]byte, error) {
	endpoint := fmt.Sprintf("/project-document/%v/download", documentId)
	req := httptest.NewRequest("GET", endpoint, nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.authToken))
	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %v failed with status %d and res '%v'", endpoint, res.StatusCode, w.Body.String())
	}

	return io.ReadAll(w.Body)
}
