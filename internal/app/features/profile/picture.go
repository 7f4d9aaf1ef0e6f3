// internal/app/features/profile/picture.go
package profile

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/uploads"
	"go.uber.org/zap"
)

const pictureField = "picture"

/*─────────────────────────────────────────────────────────────────────────────*
| POST /profile/picture  (multipart/form-data, field "picture")               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePicture(w http.ResponseWriter, r *http.Request) {
	u, ok := profileUser(w, r)
	if !ok {
		return
	}
	if h.Uploads == nil {
		respond.Error(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusRequestEntityTooLarge, uploads.ErrTooLarge.Error())
			return
		}
		respond.Error(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, _, err := r.FormFile(pictureField)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, `missing file field "picture"`)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	img, err := uploads.SaveImage(ctx, h.Uploads, "profiles/"+u.ID, file)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		respond.Error(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, uploads.ErrUnsupportedType):
		respond.Error(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		respond.ServerError(w, h.Log, "store picture failed", err, zap.String("user_id", u.ID))
		return
	}

	if err := h.profiles.SetPicture(ctx, u.Type, u.Email, img.URL); err != nil {
		_ = h.Uploads.Delete(ctx, img.Key)
		if errors.Is(err, profilestore.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, err.Error())
			return
		}
		respond.ServerError(w, h.Log, "save picture url failed", err, zap.String("user_id", u.ID))
		return
	}
	respond.OK(w, map[string]string{"profilePictureUrl": img.URL})
}
