package sources

import (
	"io"
	"net/http"
	"strconv"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
	"ourtextscores/internal/infra/pipeline"

	"github.com/gin-gonic/gin"
)

var (
	svc       *catalog.Service
	validator pipeline.Validator
)

// Init wires the catalog service and upload validator once at startup.
func Init(s *catalog.Service, v pipeline.Validator) {
	svc = s
	validator = v
}

func actorFrom(c *gin.Context) (domain.Actor, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return domain.Actor{}, false
	}
	role := c.GetString("role")
	if role == "admin" || role == "moderator" {
		return domain.AdminActor(userID), true
	}
	return domain.UserActor(userID), true
}

func writeCatalogError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsUnauthorized(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsUpstream(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func readUpload(c *gin.Context) (name, contentType string, content []byte, ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return "", "", nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open upload"})
		return "", "", nil, false
	}
	defer f.Close()
	content, err = io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return "", "", nil, false
	}
	return fh.Filename, fh.Header.Get("Content-Type"), content, true
}

// ------------------------------
// POST /works/:id/sources  (multipart)
// ------------------------------
func CreateSource(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	filename, contentType, content, ok := readUpload(c)
	if !ok {
		return
	}

	label := c.PostForm("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing label"})
		return
	}

	snap, err := validator.Validate(c.Request.Context(), filename, content)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Validation toolchain failed"})
		return
	}

	isPrimary, _ := strconv.ParseBool(c.DefaultPostForm("is_primary", "false"))

	src, rev, err := svc.CreateSource(c.Request.Context(), catalog.CreateSourceInput{
		WorkID:      c.Param("id"),
		Label:       label,
		SourceType:  c.PostForm("source_type"),
		Format:      c.PostForm("format"),
		License:     c.PostForm("license"),
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		IsPrimary:   isPrimary,
		IngestNotes: c.PostForm("notes"),
		Validation:  snap,
		Actor:       actor,
	})
	if err != nil {
		writeCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"source": src, "revision": rev})
}

// POST /works/:id/sources/:sourceId/revisions  (multipart, ?branch=&create_branch=)
func AppendRevision(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	filename, contentType, content, ok := readUpload(c)
	if !ok {
		return
	}

	snap, err := validator.Validate(c.Request.Context(), filename, content)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Validation toolchain failed"})
		return
	}

	createBranch, _ := strconv.ParseBool(c.DefaultQuery("create_branch", "false"))

	rev, err := svc.AppendRevision(c.Request.Context(), catalog.AppendInput{
		WorkID:       c.Param("id"),
		SourceID:     c.Param("sourceId"),
		BranchName:   c.Query("branch"),
		CreateBranch: createBranch,
		Content:      content,
		Filename:     filename,
		ContentType:  contentType,
		Validation:   snap,
		Actor:        actor,
	})
	if err != nil {
		writeCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rev)
}

// POST /works/:id/sources/:sourceId/revisions/:revisionId/approve
func ApproveRevision(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	rev, err := svc.Approve(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("revisionId"), actor)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// POST /works/:id/sources/:sourceId/revisions/:revisionId/reject
func RejectRevision(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	rev, err := svc.Reject(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("revisionId"), actor)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// PUT /works/:id/sources/:sourceId/revisions/:revisionId/derivatives
//
// Pipeline callback; authenticated with the service token, not a user JWT,
// so no actor is involved.
func UpsertDerivatives(c *gin.Context) {
	var req DerivativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rev, err := svc.UpsertDerivatives(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("revisionId"), req.toSet())
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// DELETE /works/:id/sources/:sourceId
func DeleteSource(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := svc.DeleteSource(c.Request.Context(), c.Param("id"), c.Param("sourceId"), actor); err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Source deleted"})
}

// PUT /works/:id/sources/:sourceId/projects/:projectId
func LinkProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := svc.LinkProject(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("projectId"), actor); err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project linked"})
}

// DELETE /works/:id/sources/:sourceId/projects/:projectId
func UnlinkProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := svc.UnlinkProject(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("projectId"), actor); err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project unlinked"})
}
