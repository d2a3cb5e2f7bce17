package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"
)

type QRServiceClient struct {
	Client   http.Client
	Host     string
	Password string
}

type QRDecodeResp struct {
	Text string `json:"text"`
}

func NewQRServiceClient(host, password string) QRServiceClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return QRServiceClient{
		Client:   *client,
		Host:     host,
		Password: password,
	}
}

func (qc *QRServiceClient) Decode(ctx context.Context, imagePath string) (string, error) {

	imgBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("reading image for QR decode: %v", err)
	}

	body := bytes.NewBuffer(imgBytes)
	req, err := http.NewRequest("POST", qc.Host+"/decode", body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth("admin", qc.Password)
	req.Header.Add("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chatwash/"+versioninfo.Short())

	start := time.Now()
	defer func() {
		duration := time.Since(start)
		qrAPIDuration.Observe(duration.Seconds())
	}()

	req = req.WithContext(ctx)
	res, err := qc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("QR decode request failed: %v", err)
	}
	defer res.Body.Close()

	qrAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode == http.StatusNotFound {
		// service reports "no code in image" as 404
		return "", nil
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("QR decode request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read QR decode resp body: %v", err)
	}

	var respObj QRDecodeResp
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return "", fmt.Errorf("failed to parse QR decode resp JSON: %v", err)
	}
	return respObj.Text, nil
}
