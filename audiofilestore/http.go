package audiofilestore

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"moodmusic/model"
)

const contentTypeWAV = "audio/wav"

// RegisterRoutes serves FileDir at /static/generated.
func (a *AudioFileStore) RegisterRoutes(r gin.IRouter) {
	r.Static(model.GeneratedServePath, a.FileDir)
}

// RegisterRoutes serves objects of the bucket at /static/generated/:name.
func (n *NatsAudioStore) RegisterRoutes(r gin.IRouter) {
	r.GET(model.GeneratedServePath+"/:name", n.getAudio)
}

func (n *NatsAudioStore) getAudio(c *gin.Context) {
	data, err := n.Load(c, c.Param("name"))
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.WithError(err).WithField("name", c.Param("name")).Error("getAudio: Load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, contentTypeWAV, data)
}
