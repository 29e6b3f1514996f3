package panel

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"crazypanel/internal/logging"
	"crazypanel/internal/stage"
	"crazypanel/internal/workflow"
)

type pageData struct {
	View        workflow.View
	UploadsHint string
	LogsHint    string
}

func (s *Server) handleIndex(c echo.Context) error {
	data := pageData{
		View:        s.coord.View(),
		UploadsHint: s.uploadsHint,
		LogsHint:    s.logsHint,
	}
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render panel").SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) handleView(c echo.Context) error {
	return c.JSON(http.StatusOK, s.coord.View())
}

func (s *Server) handleUpload(c echo.Context) error {
	file, err := selectedFile(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read uploaded file").SetInternal(err)
	}
	s.coord.Upload().Select(file)
	return s.dispatch(c, stage.KindUpload)
}

func (s *Server) handleRun(c echo.Context) error {
	s.coord.Run().SetAccount(c.FormValue("account"))
	return s.dispatch(c, stage.KindRun)
}

func (s *Server) handleSchedule(c echo.Context) error {
	sched := s.coord.Schedule()
	sched.SetAccount(c.FormValue("account"))
	sched.SetWhen(c.FormValue("when"))
	return s.dispatch(c, stage.KindSchedule)
}

// dispatch starts the stage submission and redirects back to the page. A
// second submit while the stage is busy is dropped.
func (s *Server) dispatch(c echo.Context, kind stage.Kind) error {
	err := s.coord.Dispatch(c.Request().Context(), kind)
	switch {
	case errors.Is(err, stage.ErrBusy):
		s.logger.Debug("submit ignored while busy", logging.String(logging.FieldStage, string(kind)))
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// selectedFile returns nil when the form carries no file so the stage can
// reject the submit itself.
func selectedFile(c echo.Context) (*stage.File, error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Filename == "" {
		return nil, nil
	}
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &stage.File{Name: header.Filename, Content: content}, nil
}
