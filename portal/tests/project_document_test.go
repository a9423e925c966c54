package tests

import (
	"bytes"
	"errors"
	"fieldops_portal/portal/storage"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestProjectDocumentUploadDownloadDelete(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	projectId, err := c.createProject("ring extension")
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("as-built drawings rev 3")
	documentId, err := c.uploadProjectDocument(projectId, "As-Built", "Ring extension as-builts", "asbuilt.pdf", content)
	if err != nil {
		t.Fatal(err)
	}

	downloaded, err := c.downloadProjectDocument(documentId)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(downloaded, content) {
		t.Fatalf("downloaded content does not match upload: %q", downloaded)
	}

	var info map[string]interface{}
	if err := c.Get(fmt.Sprintf("/project-document/%v/", documentId)).Do(&info); err != nil {
		t.Fatal(err)
	}
	if info["project_name"] != "ring extension" {
		t.Fatalf("expected project name resolved, got %v", info["project_name"])
	}
	if info["uploader_name"] != adminUsername {
		t.Fatalf("expected uploader name resolved, got %v", info["uploader_name"])
	}
	filePath := info["file_url"].(string)
	if filePath == "" {
		t.Fatal("expected a file url in the document info")
	}

	if err := c.Delete(fmt.Sprintf("/project-document/%v/", documentId)).Do(nil); err != nil {
		t.Fatal(err)
	}

	if _, err := c.downloadProjectDocument(documentId); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	blobPath := storage.ProjectDocumentPath(uuid.MustParse(documentId), "asbuilt.pdf")
	exists, err := env.storage.Exists(blobPath)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected blob removed after record delete")
	}
}

func TestProjectDocumentUploadRequiresExistingProject(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.uploadProjectDocument("00000000-0000-0000-0000-000000000001", "Permit", "Orphan doc", "doc.pdf", []byte("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
}

func TestProjectDocumentListByProject(t *testing.T) {
	env := setupTestEnv(t)

	c, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	firstProject, err := c.createProject("site a")
	if err != nil {
		t.Fatal(err)
	}
	secondProject, err := c.createProject("site b")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.uploadProjectDocument(firstProject, "Permit", fmt.Sprintf("permit %d", i), "permit.pdf", []byte("p")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.uploadProjectDocument(secondProject, "Permit", "other permit", "permit.pdf", []byte("p")); err != nil {
		t.Fatal(err)
	}

	var listed []map[string]interface{}
	if err := c.Get("/project-document/list?project_id=" + firstProject).Do(&listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 documents for project, got %d", len(listed))
	}
}
