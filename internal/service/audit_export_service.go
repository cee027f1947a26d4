package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"session-web-server/config"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectStorage покрывает часть клиента S3, которой пользуется выгрузка
type objectStorage interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// auditSource отдает записи журнала отзыва с id больше заданного
type auditSource interface {
	ListRevokedAfter(ctx context.Context, afterID int64) ([]*model.RevokedTokenAudit, error)
}

// AuditExportService периодически выгружает новые записи журнала отзыва
// в S3. Таблица revoked_tokens остается источником истины, выгрузка —
// архивная копия для долгого хранения. Курсор ведется по монотонному id
// последней выгруженной записи, поэтому строка, зафиксированная во время
// выгрузки, попадет в следующий цикл, а не потеряется.
type AuditExportService struct {
	client          objectStorage
	bucket          string
	tokenRepository auditSource
	lastID          int64
}

func NewAuditExportService(ctx context.Context, cfg *config.S3Config, tokenRepository auditSource) (*AuditExportService, error) {
	var client *s3.Client

	if cfg.Local {
		client = s3.New(s3.Options{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				"minioadmin",
				"minioadmin",
				"",
			),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true,
		})

		if err := createBucketIfNotExists(ctx, client, cfg.Bucket); err != nil {
			return nil, util.LogError("[AuditExport] ошибка создания бакета", err)
		}
	} else {
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, util.LogError("[AuditExport] ошибка загрузки AWS config", err)
		}
		client = s3.NewFromConfig(awsCfg)
	}

	// lastID = 0: первый цикл выгружает весь накопленный журнал
	return &AuditExportService{
		client:          client,
		bucket:          cfg.Bucket,
		tokenRepository: tokenRepository,
	}, nil
}

// createBucketIfNotExists создает бакет если он не существует
func createBucketIfNotExists(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})

	if err == nil {
		return nil // Бакет уже существует
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})

	if err != nil {
		return util.LogError("[AuditExport] ошибка создания бакета", err)
	}

	log.Printf("[AuditExport] бакет %s успешно создан", bucket)
	return nil
}

// ExportOnce выгружает записи журнала с id больше курсора.
// Если новых записей нет, объект не создается. Курсор сдвигается только
// после успешной загрузки, поэтому неудачная выгрузка повторится.
func (s *AuditExportService) ExportOnce(ctx context.Context) error {
	records, err := s.tokenRepository.ListRevokedAfter(ctx, s.lastID)
	if err != nil {
		return util.LogError("[AuditExport] не удалось прочитать журнал отзыва", err)
	}
	if len(records) == 0 {
		return nil
	}

	data, err := json.Marshal(records)
	if err != nil {
		return util.LogError("[AuditExport] ошибка сериализации журнала", err)
	}

	key := fmt.Sprintf("audit/revoked-%s.json", time.Now().UTC().Format("20060102T150405"))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return util.LogError("[AuditExport] не удалось загрузить журнал в S3", err)
	}

	s.lastID = records[len(records)-1].ID
	log.Printf("[AuditExport] выгружено %d записей журнала в %s", len(records), key)
	return nil
}

// Run запускает периодическую выгрузку до отмены контекста
func (s *AuditExportService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ExportOnce(ctx); err != nil {
				log.Printf("[AuditExport] ошибка выгрузки: %v", err)
			}
		}
	}
}
