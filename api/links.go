/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/jerry-enebeli/vanta/api/model"
	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/internal/backups"
)

// walletSigner loads the server's funding wallet. Server deployments fund
// gas from a configured key file; the shielded transfer itself stays with
// the privacy service.
func walletSigner() (*chain.FileSigner, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return chain.NewFileSigner(conf.Wallet.KeyFile)
}

func respondWithError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code, "details": apiErr.Details})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (a Api) CreateLink(c *gin.Context) {
	var req model2.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateCreateLink(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signer, err := walletSigner()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "funding wallet unavailable"})
		return
	}

	created, err := a.vanta.CreateLink(c.Request.Context(), req.ToCreateLinkRequest(), signer)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (a Api) GetLink(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /links/:id"})
		return
	}
	link, err := a.vanta.GetLink(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (a Api) ListLinks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	links, err := a.vanta.ListLinks(c.Request.Context(), limit, offset)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func (a Api) ClaimLink(c *gin.Context) {
	var req model2.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateClaim(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.vanta.ClaimLink(c.Request.Context(), req.ToClaimRequest())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a Api) RefundLink(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /links/:id/refund"})
		return
	}
	var req model2.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateRefund(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := a.vanta.RefundLink(c.Request.Context(), id, req.Destination)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (a Api) RetryGasFunding(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /links/:id/retry-funding"})
		return
	}

	signer, err := walletSigner()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "funding wallet unavailable"})
		return
	}

	link, err := a.vanta.RetryGasFunding(c.Request.Context(), id, signer)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (a Api) ExportLinks(c *gin.Context) {
	doc, err := a.vanta.ExportLinks(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (a Api) ImportLinks(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imported, err := a.vanta.ImportLinks(c.Request.Context(), raw)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

func (a Api) BackupS3(c *gin.Context) {
	doc, err := a.vanta.ExportLinks(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := backups.BackupToS3(c.Request.Context(), raw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ledger export uploaded"})
}

func (a Api) RefreshLinks(c *gin.Context) {
	links, err := a.vanta.RefreshLinkStatuses(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}
