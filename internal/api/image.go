package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

const (
	// maxProfilePicBytes caps the uploaded file size.
	maxProfilePicBytes = 2 << 20
	// profilePicSize is the stored square edge in pixels.
	profilePicSize = 200
	// profilePicQuality is the JPEG encoding quality.
	profilePicQuality = 80
)

var errUnsupportedImage = errors.New("unsupported image")

// encodeProfilePicture center-crops the upload to a square, scales it to
// profilePicSize, and returns it as a JPEG data URI.
func encodeProfilePicture(file io.Reader) (string, error) {
	src, _, err := image.Decode(file)
	if err != nil {
		return "", errUnsupportedImage
	}

	bounds := src.Bounds()
	edge := bounds.Dx()
	if bounds.Dy() < edge {
		edge = bounds.Dy()
	}
	if edge <= 0 {
		return "", errUnsupportedImage
	}
	offsetX := bounds.Min.X + (bounds.Dx()-edge)/2
	offsetY := bounds.Min.Y + (bounds.Dy()-edge)/2
	crop := image.Rect(offsetX, offsetY, offsetX+edge, offsetY+edge)

	dst := image.NewRGBA(image.Rect(0, 0, profilePicSize, profilePicSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: profilePicQuality}); err != nil {
		return "", fmt.Errorf("encode profile picture: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (h *Handler) uploadProfilePic(w http.ResponseWriter, r *http.Request, userID string) {
	user, ok := h.requireOwner(w, r, userID)
	if !ok {
		return
	}

	// Multipart framing adds overhead beyond the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxProfilePicBytes+512*1024)
	if err := r.ParseMultipartForm(maxProfilePicBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
		return
	}
	file, header, err := r.FormFile("profilePic")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("profilePic file is required"))
		return
	}
	defer file.Close()
	if header.Size > maxProfilePicBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
		return
	}

	dataURI, err := encodeProfilePicture(file)
	if err != nil {
		if errors.Is(err, errUnsupportedImage) {
			writeError(w, http.StatusBadRequest, errors.New("unsupported image"))
			return
		}
		h.log().Error("profile picture encode failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	if err := h.Store.UpdateProfilePic(r.Context(), user.ID, dataURI); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"profilePic": dataURI})
}
