package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/storage"
)

// FileService cut文件服务
type FileService struct {
	fileRepo    *repository.FileRepository
	cutRepo     *repository.CutRepository
	vibeRepo    *repository.VibeRepository
	projectRepo *repository.ProjectRepository
	store       storage.BlobStore
	activitySvc *ActivityService
	maxUpload   int64
}

// NewFileService 创建文件服务
func NewFileService(
	fileRepo *repository.FileRepository,
	cutRepo *repository.CutRepository,
	vibeRepo *repository.VibeRepository,
	projectRepo *repository.ProjectRepository,
	store storage.BlobStore,
	activitySvc *ActivityService,
	maxUpload int64,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		cutRepo:     cutRepo,
		vibeRepo:    vibeRepo,
		projectRepo: projectRepo,
		store:       store,
		activitySvc: activitySvc,
		maxUpload:   maxUpload,
	}
}

// resolveCut 定位cut及其vibe/project，并做访问校验
func (s *FileService) resolveCut(ctx context.Context, cutID, userID string, role entity.Role) (*entity.Cut, *entity.Vibe, *entity.Project, error) {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return nil, nil, nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, nil, nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return cut, vibe, project, nil
}

// Upload 上传文件到cut
func (s *FileService) Upload(ctx context.Context, cutID, userID string, role entity.Role, kind string, header *multipart.FileHeader) (*entity.CutFile, error) {
	if header.Size <= 0 || (s.maxUpload > 0 && header.Size > s.maxUpload) {
		return nil, ErrInvalid
	}
	if kind == "" {
		kind = entity.FileKindAudio
	}
	if kind != entity.FileKindAudio && kind != entity.FileKindStem {
		return nil, ErrInvalid
	}

	cut, vibe, project, err := s.resolveCut(ctx, cutID, userID, role)
	if err != nil {
		return nil, err
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	fileID := generateID()
	ext := filepath.Ext(header.Filename)
	storagePath := cutStoragePrefix(project.ID, vibe.ID, cut.ID) + fileID + ext

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.store.Put(ctx, storagePath, src, header.Size, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	file := &entity.CutFile{
		ID:          fileID,
		CutID:       cut.ID,
		Kind:        kind,
		FileName:    header.Filename,
		StoragePath: storagePath,
		Size:        header.Size,
		ContentType: contentType,
		UploadedBy:  userID,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		// 落库失败时清掉已写入的对象
		s.store.Delete(ctx, storagePath)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.FileUploadedMeta{FileName: file.FileName, CutName: cut.Name, ProjectName: project.Name},
		fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s", project.ID, vibe.ID, cut.ID))

	return file, nil
}

// List cut下文件列表
func (s *FileService) List(ctx context.Context, cutID, userID string, role entity.Role) ([]entity.CutFile, error) {
	if _, _, _, err := s.resolveCut(ctx, cutID, userID, role); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByCut(ctx, cutID)
}

// Download 下载文件内容
func (s *FileService) Download(ctx context.Context, fileID, userID string, role entity.Role) (*entity.CutFile, io.ReadCloser, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if _, _, _, err := s.resolveCut(ctx, file.CutID, userID, role); err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return file, rc, nil
}

// DownloadShared 通过分享token下载，无需登录
func (s *FileService) DownloadShared(ctx context.Context, token string) (*entity.CutFile, io.ReadCloser, error) {
	file, err := s.fileRepo.FindByShareToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return file, rc, nil
}

// Share 为文件生成分享token（已有token时直接复用）
func (s *FileService) Share(ctx context.Context, fileID, userID string, role entity.Role) (*entity.CutFile, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	_, vibe, project, err := s.resolveCut(ctx, file.CutID, userID, role)
	if err != nil {
		return nil, err
	}

	if file.ShareToken != nil {
		return file, nil
	}

	token := uuid.New().String()
	file.ShareToken = &token
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.FileSharedMeta{FileName: file.FileName, ProjectName: project.Name},
		fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s", project.ID, vibe.ID, file.CutID))

	return file, nil
}

// Unshare 撤销分享token
func (s *FileService) Unshare(ctx context.Context, fileID, userID string, role entity.Role) error {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if _, _, _, err := s.resolveCut(ctx, file.CutID, userID, role); err != nil {
		return err
	}
	file.ShareToken = nil
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// Delete 删除文件，仅上传者、项目owner或管理员
func (s *FileService) Delete(ctx context.Context, fileID, userID string, role entity.Role) error {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	_, _, project, err := s.resolveCut(ctx, file.CutID, userID, role)
	if err != nil {
		return err
	}
	if file.UploadedBy != userID && project.OwnerID != userID && !role.IsAdmin() {
		return ErrForbidden
	}

	if err := s.fileRepo.Delete(ctx, fileID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, file.StoragePath); err != nil {
		// 对象删除失败不回滚记录，留给存储巡检
		return nil
	}
	return nil
}
