package api

import (
	"net/http"
	"strconv"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/gin-gonic/gin"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/datasets"
	"github.com/qvantel/synapse/internal/logger"
)

// AddSamples godoc
// @Summary Sample ingestion endpoint
// @Description Will store the samples carried by the given cloud event and queue training if requested
// @Accept json
// @Produce json
// @Success 202
// @Failure 400 {object} types.SimpleRes "When the request body is formatted incorrectly"
// @Failure 500 {object} types.SimpleRes "When there is an error processing the update"
// @Router /datasets/process [post]
func (h *Handler) AddSamples(c *gin.Context) {
	event := cloudevents.NewEvent()

	err := c.ShouldBindJSON(&event)
	if err != nil {
		logger.Debug("Failed to unmarshal message (" + err.Error() + ")")
		c.JSON(http.StatusBadRequest, types.NewErrorRes("Wrong format"))
		return
	}

	err = datasets.ProcessUpdate(event, h.SS, h.TServ)
	if err != nil {
		logger.Error("Failed to process message", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error processing samples, see logs for more info"))
		return
	}

	c.String(http.StatusAccepted, "")
}

// DeleteDataset godoc
// @Summary Dataset deletion endpoint
// @Description Will delete the dataset with the specified ID
// @Produce json
// @Param id path string true "Dataset ID"
// @Success 200 {object} types.SimpleRes
// @Failure 404 {object} types.SimpleRes "When the dataset doesn't exist"
// @Failure 500 {object} types.SimpleRes "When there is an error deleting the dataset"
// @Router /datasets/{id} [delete]
func (h *Handler) DeleteDataset(c *gin.Context) {
	id := c.Param("id")
	delErr := types.NewErrorRes("Error deleting dataset, see logs for more info")
	found, err := h.SS.Exists(id)
	if err != nil {
		logger.Error("Failed to check if the dataset "+id+" exists in the store", err)
		c.JSON(http.StatusInternalServerError, delErr)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, types.NewErrorRes("Dataset with id "+id+" could not be found"))
		return
	}
	err = h.SS.DeleteDataset(id)
	if err != nil {
		logger.Error("Failed to delete dataset "+id, err)
		c.JSON(http.StatusInternalServerError, delErr)
		return
	}
	c.JSON(http.StatusOK, types.NewOkRes("Dataset "+id+" was successfully deleted"))
}

// ListSamples godoc
// @Summary Retrieve samples from dataset
// @Description Will return the last N samples of the given dataset
// @Produce json
// @Param id path string true "Dataset ID"
// @Param limit query int false "How many samples to fetch" default(10) maximum(500)
// @Success 200 {array} samplestores.Sample
// @Failure 404 {object} types.SimpleRes "When the dataset doesn't exist"
// @Failure 500 {object} types.SimpleRes "When there is an error fetching the samples"
// @Router /datasets/{id}/samples [get]
func (h *Handler) ListSamples(c *gin.Context) {
	raw := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, types.NewErrorRes("limit must be a valid integer"))
		return
	}
	if limit > 500 {
		limit = 500 // So things won't get too much out of control
	}
	id := c.Param("id")
	exists, err := h.SS.Exists(id)
	if err != nil {
		logger.Error("Failed to check if dataset with id "+id+" exists", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error fetching samples, see logs for more info"))
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, types.NewErrorRes("Dataset with id "+id+" could not be found"))
		return
	}

	samples, err := h.SS.GetLastN(id, limit)
	if err != nil {
		logger.Error("Failed to get samples from dataset with id "+id, err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error fetching samples, see logs for more info"))
		return
	}
	c.JSON(http.StatusOK, samples)
}

// ListDatasets godoc
// @Summary Retrieve list of datasets
// @Description Will return the list of datasets in the system
// @Produce json
// @Success 200 {array} types.BriefDataset
// @Failure 500 {object} types.SimpleRes "When there is an error fetching the list of datasets"
// @Router /datasets [get]
func (h *Handler) ListDatasets(c *gin.Context) {
	list, err := h.SS.ListDatasets()
	if err != nil {
		logger.Error("Failed to get list of datasets", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error getting list of datasets, see logs for more info"))
		return
	}
	c.JSON(http.StatusOK, list)
}
