package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alialfonick-commits/loru/internal/addpipe"
	"github.com/alialfonick-commits/loru/internal/artifact"
	"github.com/alialfonick-commits/loru/internal/aws"
	"github.com/alialfonick-commits/loru/internal/fulfillment"
	"github.com/alialfonick-commits/loru/internal/metrics"
	"github.com/alialfonick-commits/loru/internal/orders"
	"github.com/alialfonick-commits/loru/internal/shopify"
	"github.com/alialfonick-commits/loru/internal/storage"
	"github.com/alialfonick-commits/loru/internal/validation"
)

// itemResult is the per-line-item outcome reported to the caller. Exactly
// one entry per attempted item; a failed item never hides its siblings.
type itemResult struct {
	LineItemID    string `json:"line_item_id"`
	Success       bool   `json:"success,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
	Error         bool   `json:"error,omitempty"`
	Reason        string `json:"reason,omitempty"`
	MediaURL      string `json:"uploaded_file_url,omitempty"`
	ArtifactURL   string `json:"qrcode_url,omitempty"`
	ArtifactError string `json:"artifact_error,omitempty"`
}

// RegisterOrderWebhook registers the commerce order-event route.
func RegisterOrderWebhook(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	durable := storage.NewStore(cfg.S3Client, cfg.Bucket, cfg.Region)
	artifacts := artifact.NewGenerator(durable)
	emitter := metrics.NewEmitter(cfg.CloudWatchClient, cfg.MetricsNamespace)

	capture := addpipe.NewClient(cfg.HTTPClient, cfg.AddpipeAPIKey)
	if cfg.AddpipeBaseURL != "" {
		capture.BaseURL = cfg.AddpipeBaseURL
	}
	downloader := addpipe.NewDownloader(cfg.HTTPClient)
	if cfg.DownloadRetries > 0 {
		downloader.Retries = cfg.DownloadRetries
	}
	if cfg.DownloadBaseDelay > 0 {
		downloader.BaseDelay = cfg.DownloadBaseDelay
	}

	partner := fulfillment.NewClient(cfg.HTTPClient, cfg.FulfillmentToken, cfg.FulfillmentSecret)
	if cfg.FulfillmentBaseURL != "" {
		partner.BaseURL = cfg.FulfillmentBaseURL
	}

	var cleanupQueue *aws.Publisher
	if cfg.CleanupQueueURL != "" {
		cleanupQueue = aws.NewPublisher(cfg.SQSClient, cfg.CleanupQueueURL)
	}

	ing := &ingestor{
		store:        store,
		durable:      durable,
		artifacts:    artifacts,
		capture:      capture,
		downloader:   downloader,
		partner:      partner,
		cleanupQueue: cleanupQueue,
		emitter:      emitter,
	}

	r.POST("/webhooks/orders", func(c *gin.Context) {
		var req shopify.OrderWebhook
		raw, err := validation.BindRawAndValidate(c, &req, v)
		if err != nil {
			// BindRawAndValidate already wrote a 400
			return
		}
		ing.handle(c, raw, &req)
	})
}

type ingestor struct {
	store        *orders.Store
	durable      *storage.Store
	artifacts    *artifact.Generator
	capture      *addpipe.Client
	downloader   *addpipe.Downloader
	partner      *fulfillment.Client
	cleanupQueue *aws.Publisher
	emitter      *metrics.Emitter
}

// processOutcome is the result of one item's fetch/upload/artifact stage.
type processOutcome struct {
	result      itemResult
	item        shopify.ParsedItem
	mediaFile   *orders.MediaFile
	fulfillItem *fulfillment.Item
}

func (ing *ingestor) handle(c *gin.Context, raw []byte, req *shopify.OrderWebhook) {
	// A client disconnect must not abort in-flight uploads or a partial
	// fulfillment submission, so the pipeline runs on its own context.
	ctx := context.Background()
	orderID := req.OrderID()
	log.Printf("[ingest] order webhook received order=%s", orderID)

	parsed := shopify.ExtractLineItems(req)

	doc := &orders.Order{
		OrderID:         orderID,
		Email:           req.Email,
		CustomerName:    req.CustomerName(),
		ShippingAddress: req.ShippingAddress,
		RawPayload:      string(raw),
		LineItems:       make([]orders.LineItem, 0, len(parsed)),
	}
	for _, p := range parsed {
		doc.LineItems = append(doc.LineItems, orders.LineItem{
			LineItemID: p.Item.ID.String(),
			Name:       p.Item.DisplayName(),
			SKU:        p.Item.SKU,
			Quantity:   p.Item.Qty(),
			VideoID:    p.VideoID,
			StreamName: p.StreamName,
		})
	}

	created, err := ing.store.CreateIfAbsent(ctx, doc)
	if err != nil {
		log.Printf("[ingest] order=%s create failed: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if created {
		log.Printf("[ingest] order=%s document created", orderID)
		ing.emitter.Count(ctx, metrics.OrdersIngested, 1)
	} else {
		log.Printf("[ingest] order=%s document already exists", orderID)
	}

	var eligible []shopify.ParsedItem
	for _, p := range parsed {
		if p.Eligible() {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		log.Printf("[ingest] order=%s has no recordable media items, nothing to process", orderID)
		ing.emitter.Count(ctx, metrics.ItemsSkipped, float64(len(parsed)))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "no recordable media items found"})
		return
	}

	// fan out per eligible item; failure domains are independent
	outcomes := make([]processOutcome, len(eligible))
	var wg sync.WaitGroup
	for i, p := range eligible {
		wg.Add(1)
		go func(i int, p shopify.ParsedItem) {
			defer wg.Done()
			outcomes[i] = ing.processItem(ctx, p)
		}(i, p)
	}
	wg.Wait()

	// apply results to the document sequentially, in item order
	results := make([]itemResult, 0, len(parsed))
	for _, p := range parsed {
		if !p.Eligible() {
			results = append(results, itemResult{LineItemID: p.Item.ID.String(), Skipped: true, Reason: "no_video_id"})
		}
	}
	var succeeded []processOutcome
	for _, out := range outcomes {
		if out.mediaFile != nil {
			if err := ing.store.AppendMediaFile(ctx, orderID, *out.mediaFile); err != nil {
				log.Printf("[ingest] order=%s append media file for item=%s failed: %v", orderID, out.result.LineItemID, err)
			}
			succeeded = append(succeeded, out)
			ing.emitter.Count(ctx, metrics.ItemsSucceeded, 1)
		} else {
			ing.emitter.Count(ctx, metrics.ItemsFailed, 1)
		}
		results = append(results, out.result)
	}

	response := gin.H{"success": true, "results": results}

	if len(succeeded) > 0 {
		items := make([]fulfillment.Item, 0, len(succeeded))
		for _, out := range succeeded {
			items = append(items, *out.fulfillItem)
		}

		res, err := ing.partner.Submit(ctx, items, req.ShippingAddress, req.Number())
		if err != nil {
			// fatal for the batch, reported, never retried here
			log.Printf("[ingest] order=%s fulfillment submission failed: %v", orderID, err)
			response["fulfillment_error"] = err.Error()
		} else {
			refs := make([]orders.FulfillmentRef, 0, len(succeeded))
			now := time.Now().UTC()
			for _, out := range succeeded {
				refs = append(refs, orders.FulfillmentRef{
					LineItemID:    out.result.LineItemID,
					FulfillmentID: res.ID,
					TrackingURL:   res.URL,
					CreatedAt:     now,
				})
			}
			if err := ing.store.RecordFulfillment(ctx, orderID, res.SourceOrderID, refs); err != nil {
				log.Printf("[ingest] order=%s record fulfillment failed: %v", orderID, err)
			}
			response["fulfillment"] = gin.H{"id": res.ID, "url": res.URL, "source_order_id": res.SourceOrderID}
			log.Printf("[ingest] order=%s fulfillment submitted id=%s items=%d", orderID, res.ID, len(items))
		}

		// uploaded copies are durable now; the capture-service originals
		// can go
		for _, out := range succeeded {
			ing.scheduleCleanup(orderID, out.item.VideoID)
		}
	}

	c.JSON(http.StatusOK, response)
}

// processItem runs the fetch/upload/artifact stage for one line item. Only
// this item fails on error; siblings keep going.
func (ing *ingestor) processItem(ctx context.Context, p shopify.ParsedItem) processOutcome {
	lineItemID := p.Item.ID.String()
	out := processOutcome{item: p, result: itemResult{LineItemID: lineItemID}}

	mediaURL, err := ing.capture.ResolveMediaURL(ctx, p.VideoID)
	if err != nil {
		log.Printf("[ingest] item=%s video=%s capture lookup failed: %v", lineItemID, p.VideoID, err)
		out.result.Error = true
		out.result.Reason = "addpipe_fetch_failed"
		return out
	}

	body, err := ing.downloader.Fetch(ctx, mediaURL)
	if err != nil {
		log.Printf("[ingest] item=%s video=%s download failed: %v", lineItemID, p.VideoID, err)
		out.result.Error = true
		out.result.Reason = "download_exhausted"
		return out
	}

	uploadedURL, err := ing.durable.Put(ctx, storage.MediaKey(p.VideoID), body, "video/mp4")
	if err != nil {
		log.Printf("[ingest] item=%s video=%s upload failed: %v", lineItemID, p.VideoID, err)
		out.result.Error = true
		out.result.Reason = "upload_failed"
		return out
	}

	// artifact failure is non-fatal: the raw media still prints, and the
	// partner falls back to the media address
	artifactURL, err := ing.artifacts.Generate(ctx, p.VideoID, uploadedURL)
	if err != nil {
		log.Printf("[ingest] item=%s video=%s qr generation failed: %v", lineItemID, p.VideoID, err)
		out.result.ArtifactError = "qrcode_failed"
		artifactURL = uploadedURL
	}

	out.result.Success = true
	out.result.MediaURL = uploadedURL
	out.result.ArtifactURL = artifactURL
	out.mediaFile = &orders.MediaFile{
		LineItemID:  lineItemID,
		VideoID:     p.VideoID,
		StreamName:  p.StreamName,
		URL:         uploadedURL,
		ArtifactURL: artifactURL,
		CreatedAt:   time.Now().UTC(),
	}
	out.fulfillItem = &fulfillment.Item{
		LineItemID:  lineItemID,
		Name:        p.Item.DisplayName(),
		Quantity:    p.Item.Qty(),
		ArtifactURL: artifactURL,
	}
	return out
}

// scheduleCleanup requests best-effort deletion of the capture-service
// original. Failures are logged and never reach the caller.
func (ing *ingestor) scheduleCleanup(orderID, videoID string) {
	if ing.cleanupQueue != nil {
		body, _ := json.Marshal(map[string]string{"video_id": videoID, "order_id": orderID})
		if err := ing.cleanupQueue.SendCleanupMessage(context.Background(), string(body), map[string]string{"order_id": orderID}); err != nil {
			log.Printf("[ingest] order=%s enqueue cleanup for video=%s failed: %v", orderID, videoID, err)
		}
		return
	}
	go func() {
		if err := ing.capture.Delete(context.Background(), videoID); err != nil {
			log.Printf("[ingest] order=%s delete capture video=%s failed: %v", orderID, videoID, err)
		}
	}()
}
