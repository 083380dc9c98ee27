package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/logger"
	"github.com/qvantel/synapse/internal/nets"
	"github.com/qvantel/synapse/internal/training"
)

// CreateNet godoc
// @Summary Network creation endpoint
// @Description Will build a net with random weights from the given config and store it under a new ID
// @Accept json
// @Produce json
// @Success 201 {object} types.CreatedRes
// @Failure 400 {object} types.SimpleRes "When the request body is formatted incorrectly or the config is invalid"
// @Failure 500 {object} types.SimpleRes "When there is an error storing the net"
// @Router /nets [post]
func (h *Handler) CreateNet(c *gin.Context) {
	var conf nets.Config
	err := c.ShouldBindJSON(&conf)
	if err != nil {
		logger.Debug("Failed to unmarshal message (" + err.Error() + ")")
		c.JSON(http.StatusBadRequest, types.NewErrorRes("Wrong format"))
		return
	}
	conf.Timeout = h.Conf.ML.UnitTimeout
	net, err := nets.Build(conf)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorRes(err.Error()))
		return
	}
	defer net.Close()
	params, err := net.Params()
	if err != nil {
		logger.Error("Failed to get the params of a new net", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error creating net, see logs for more info"))
		return
	}
	id := uuid.NewString()
	err = h.NPS.Save(id, &params)
	if err != nil {
		logger.Error("Failed to save net "+id, err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error creating net, see logs for more info"))
		return
	}
	c.JSON(http.StatusCreated, types.CreatedRes{ID: id})
}

// DeleteNet godoc
// @Summary Network deletion endpoint
// @Description Will delete the net with the specified ID
// @Produce json
// @Param id path string true "Net ID"
// @Success 200 {object} types.SimpleRes
// @Failure 500 {object} types.SimpleRes "When there is an error deleting the net"
// @Router /nets/{id} [delete]
func (h *Handler) DeleteNet(c *gin.Context) {
	id := c.Param("id")
	err := h.NPS.Delete(id)
	if err != nil {
		logger.Error("Failed to delete net "+id, err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error deleting net "+id+", see logs for more info"))
		return
	}
	c.JSON(http.StatusOK, types.NewOkRes("Net "+id+" was successfully deleted"))
}

// loadNet writes the error response itself when it returns false
func (h *Handler) loadNet(c *gin.Context, id string) (nets.Params, bool) {
	var params nets.Params
	found, err := h.NPS.Load(id, &params)
	if err != nil {
		logger.Error("Failed to load net "+id, err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error loading net, see logs for more info"))
		return params, false
	}
	if !found {
		c.JSON(http.StatusNotFound, types.NewErrorRes("Net with ID "+id+" could not be found"))
		return params, false
	}
	return params, true
}

// Evaluate godoc
// @Summary Input evaluation endpoint
// @Description Will return the output produced by the given net for the given input
// @Accept json
// @Produce json
// @Param id path string true "Net ID"
// @Success 200 {object} types.EvaluateRes
// @Failure 400 {object} types.SimpleRes "When the request body is formatted incorrectly"
// @Failure 404 {object} types.SimpleRes "When the provided net ID isn't found"
// @Failure 500 {object} types.SimpleRes "When there is an error loading the net or evaluating the inputs"
// @Router /nets/{id}/evaluate [post]
func (h *Handler) Evaluate(c *gin.Context) {
	id := c.Param("id")
	var req types.EvaluateRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		logger.Debug("Failed to unmarshal message (" + err.Error() + ")")
		c.JSON(http.StatusBadRequest, types.NewErrorRes("Wrong format"))
		return
	}

	params, ok := h.loadNet(c, id)
	if !ok {
		return
	}
	params.Config.Timeout = h.Conf.ML.UnitTimeout
	net, err := nets.FromParams(params)
	if err != nil {
		logger.Error("Failed to rebuild net "+id, err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error loading net, see logs for more info"))
		return
	}
	defer net.Close()

	outputs, err := net.Forward(req.Inputs)
	if errors.Is(err, nets.ErrValidation) {
		c.JSON(http.StatusBadRequest, types.NewErrorRes(err.Error()))
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error evaluating inputs ("+err.Error()+")"))
		return
	}
	c.JSON(http.StatusOK, types.EvaluateRes{Outputs: outputs})
}

// GetNet godoc
// @Summary Network params endpoint
// @Description Will return everything needed to rebuild the net with the specified ID
// @Produce json
// @Param id path string true "Net ID"
// @Success 200 {object} nets.Params
// @Failure 404 {object} types.SimpleRes "When the provided net ID isn't found"
// @Failure 500 {object} types.SimpleRes "When there is an error loading the net"
// @Router /nets/{id} [get]
func (h *Handler) GetNet(c *gin.Context) {
	params, ok := h.loadNet(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, params)
}

// listNets fills in BriefNet objects from the IDs of nets in the store
func (h *Handler) listNets(offset, limit int, pattern string) ([]types.BriefNet, int, error) {
	briefs := []types.BriefNet{}
	ids, cursor, err := h.NPS.List(offset, limit, pattern)
	if err != nil {
		return nil, 0, err
	}
	for _, id := range ids {
		var np nets.Params
		found, err := h.NPS.Load(id, &np)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			// Deleted between the two calls
			continue
		}
		brief := np.Brief()
		brief.ID = id
		briefs = append(briefs, *brief)
	}
	return briefs, cursor, nil
}

// ListNets godoc
// @Summary Nets endpoint
// @Description Will return the paginated list of neural nets in the system
// @Produce json
// @Param offset query int false "Offset to fetch" default(0)
// @Param limit query int false "How many networks to fetch, the service might return more in some cases" default(10) maximum(50)
// @Param pattern query string false "Glob style pattern the IDs must match" default(*)
// @Success 200 {object} types.PagedRes
// @Failure 400 {object} types.SimpleRes "When the request params are formatted incorrectly"
// @Failure 500 {object} types.SimpleRes "When there is an error retrieving the list of nets"
// @Router /nets [get]
func (h *Handler) ListNets(c *gin.Context) {
	raw := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, types.NewErrorRes("offset must be a valid integer"))
		return
	}
	raw = c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, types.NewErrorRes("limit must be a valid integer"))
		return
	}
	if limit > 50 {
		limit = 50 // Till there is a better solution in place, this is so things won't get too much out of control
	}

	briefs, cursor, err := h.listNets(offset, limit, c.DefaultQuery("pattern", "*"))
	if err != nil {
		logger.Error("Failed to get list of nets", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error getting list of nets, see logs for more info"))
		return
	}
	c.JSON(http.StatusOK, types.PagedRes{Last: cursor == 0, Next: cursor, Results: briefs})
}

// Train godoc
// @Summary Net train endpoint
// @Description Used for training existing networks with the samples from an existing dataset
// @Accept json
// @Param id path string true "Net ID"
// @Success 202 {object} types.SimpleRes
// @Failure 400 {object} types.SimpleRes "When the request body is formatted incorrectly or the options are invalid"
// @Failure 404 {object} types.SimpleRes "When the provided net or dataset ID isn't found"
// @Failure 500 {object} types.SimpleRes "When there is an error processing the request"
// @Router /nets/{id}/train [post]
func (h *Handler) Train(c *gin.Context) {
	var tr types.TrainRequest
	err := c.ShouldBindJSON(&tr)
	if err != nil {
		logger.Debug("Failed to unmarshal message (" + err.Error() + ")")
		c.JSON(http.StatusBadRequest, types.NewErrorRes("Wrong format"))
		return
	}
	tr.NetID = c.Param("id")
	if _, err = training.Options(tr.Options, h.Conf.ML); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorRes(err.Error()))
		return
	}
	if _, ok := h.loadNet(c, tr.NetID); !ok {
		return
	}
	exists, err := h.SS.Exists(tr.DatasetID)
	if err != nil {
		logger.Error("Failed to check if dataset with ID "+tr.DatasetID+" exists", err)
		c.JSON(http.StatusInternalServerError, types.NewErrorRes("Error processing training request, see logs for more info"))
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, types.NewErrorRes("Dataset with ID "+tr.DatasetID+" could not be found"))
		return
	}
	h.TServ <- tr
	c.JSON(http.StatusAccepted, types.NewOkRes("Training request for net "+tr.NetID+" created successfully"))
}

// ListFunctions godoc
// @Summary Functions endpoint
// @Description Will return the names of the activation, loss and optimizer functions nets can be built with
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /functions [get]
func ListFunctions(c *gin.Context) {
	c.JSON(http.StatusOK, nets.Describe())
}
