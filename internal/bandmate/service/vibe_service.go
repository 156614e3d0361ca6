package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/google/uuid"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/storage"
)

// VibeService vibe与cut服务
type VibeService struct {
	vibeRepo    *repository.VibeRepository
	cutRepo     *repository.CutRepository
	projectRepo *repository.ProjectRepository
	store       storage.BlobStore
	activitySvc *ActivityService
}

// NewVibeService 创建vibe服务
func NewVibeService(
	vibeRepo *repository.VibeRepository,
	cutRepo *repository.CutRepository,
	projectRepo *repository.ProjectRepository,
	store storage.BlobStore,
	activitySvc *ActivityService,
) *VibeService {
	return &VibeService{
		vibeRepo:    vibeRepo,
		cutRepo:     cutRepo,
		projectRepo: projectRepo,
		store:       store,
		activitySvc: activitySvc,
	}
}

// cutStoragePrefix cut下文件的存储路径前缀
func cutStoragePrefix(projectID, vibeID, cutID string) string {
	return fmt.Sprintf("projects/%s/vibes/%s/cuts/%s/", projectID, vibeID, cutID)
}

// CreateVibeRequest 创建vibe请求
type CreateVibeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	BPM         int    `json:"bpm"`
	MusicalKey  string `json:"musical_key"`
}

// UpdateVibeRequest 更新vibe请求
type UpdateVibeRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	BPM         *int    `json:"bpm"`
	MusicalKey  *string `json:"musical_key"`
}

// CreateCutRequest 创建cut请求
type CreateCutRequest struct {
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

// UpdateCutRequest 更新cut请求
type UpdateCutRequest struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

// MoveCutRequest 移动cut请求
type MoveCutRequest struct {
	ToVibeID string `json:"to_vibe_id" binding:"required"`
}

// UpdateLyricsRequest 更新歌词请求
type UpdateLyricsRequest struct {
	Lyrics string `json:"lyrics"`
}

// uniqueVibeSlug 项目内生成vibe slug，冲突时追加短后缀
func (s *VibeService) uniqueVibeSlug(ctx context.Context, projectID, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "vibe"
	}
	_, err := s.vibeRepo.FindBySlug(ctx, projectID, base)
	if errors.Is(err, repository.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}

// CreateVibe 创建vibe
func (s *VibeService) CreateVibe(ctx context.Context, projectID, userID string, role entity.Role, req *CreateVibeRequest) (*entity.Vibe, error) {
	if err := projectAccess(ctx, s.projectRepo, projectID, userID, role); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	sl, err := s.uniqueVibeSlug(ctx, projectID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}

	vibe := &entity.Vibe{
		ID:          generateID(),
		ProjectID:   projectID,
		Slug:        sl,
		Name:        req.Name,
		Description: req.Description,
		BPM:         req.BPM,
		MusicalKey:  req.MusicalKey,
		CreatedBy:   userID,
	}
	if err := s.vibeRepo.Create(ctx, vibe); err != nil {
		return nil, fmt.Errorf("create vibe: %w", err)
	}

	s.activitySvc.Record(ctx, userID, projectID,
		entity.VibeCreatedMeta{VibeName: vibe.Name, ProjectName: project.Name},
		fmt.Sprintf("/projects/%s/vibes/%s", projectID, vibe.ID))

	return vibe, nil
}

// ListVibes 项目下vibe列表
func (s *VibeService) ListVibes(ctx context.Context, projectID, userID string, role entity.Role) ([]entity.Vibe, error) {
	if err := projectAccess(ctx, s.projectRepo, projectID, userID, role); err != nil {
		return nil, err
	}
	return s.vibeRepo.ListByProject(ctx, projectID)
}

// GetVibe 获取vibe详情（含cut列表）
func (s *VibeService) GetVibe(ctx context.Context, vibeID, userID string, role entity.Role) (*entity.Vibe, error) {
	vibe, err := s.vibeRepo.FindByID(ctx, vibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	cuts, err := s.cutRepo.ListByVibe(ctx, vibeID)
	if err != nil {
		return nil, fmt.Errorf("list cuts: %w", err)
	}
	vibe.Cuts = cuts
	return vibe, nil
}

// UpdateVibe 更新vibe
func (s *VibeService) UpdateVibe(ctx context.Context, vibeID, userID string, role entity.Role, req *UpdateVibeRequest) (*entity.Vibe, error) {
	vibe, err := s.vibeRepo.FindByID(ctx, vibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		vibe.Name = *req.Name
	}
	if req.Description != nil {
		vibe.Description = *req.Description
	}
	if req.BPM != nil {
		vibe.BPM = *req.BPM
	}
	if req.MusicalKey != nil {
		vibe.MusicalKey = *req.MusicalKey
	}
	if err := s.vibeRepo.Update(ctx, vibe); err != nil {
		return nil, fmt.Errorf("update vibe: %w", err)
	}
	return vibe, nil
}

// DeleteVibe 删除vibe，仅创建者、项目owner或管理员
func (s *VibeService) DeleteVibe(ctx context.Context, vibeID, userID string, role entity.Role) error {
	vibe, err := s.vibeRepo.FindByID(ctx, vibeID)
	if err != nil {
		return err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return err
	}
	if vibe.CreatedBy != userID && project.OwnerID != userID && !role.IsAdmin() {
		return ErrForbidden
	}
	return s.vibeRepo.Delete(ctx, vibeID)
}

// CreateCut 在vibe下创建cut，序号自动追加到末尾
func (s *VibeService) CreateCut(ctx context.Context, vibeID, userID string, role entity.Role, req *CreateCutRequest) (*entity.Cut, error) {
	vibe, err := s.vibeRepo.FindByID(ctx, vibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return nil, err
	}

	seq, err := s.cutRepo.NextSequence(ctx, vibeID)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	cut := &entity.Cut{
		ID:        generateID(),
		VibeID:    vibeID,
		Name:      req.Name,
		Notes:     req.Notes,
		Sequence:  seq,
		CreatedBy: userID,
	}
	if err := s.cutRepo.Create(ctx, cut); err != nil {
		return nil, fmt.Errorf("create cut: %w", err)
	}

	s.activitySvc.Record(ctx, userID, vibe.ProjectID,
		entity.CutCreatedMeta{CutName: cut.Name, VibeName: vibe.Name, ProjectName: project.Name},
		fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s", vibe.ProjectID, vibeID, cut.ID))

	return cut, nil
}

// GetCut 获取cut详情（含文件）
func (s *VibeService) GetCut(ctx context.Context, cutID, userID string, role entity.Role) (*entity.Cut, error) {
	cut, err := s.cutRepo.FindByIDWithFiles(ctx, cutID)
	if err != nil {
		return nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	return cut, nil
}

// UpdateCut 更新cut
func (s *VibeService) UpdateCut(ctx context.Context, cutID, userID string, role entity.Role, req *UpdateCutRequest) (*entity.Cut, error) {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		cut.Name = *req.Name
	}
	if req.Notes != nil {
		cut.Notes = *req.Notes
	}
	if err := s.cutRepo.Update(ctx, cut); err != nil {
		return nil, fmt.Errorf("update cut: %w", err)
	}
	return cut, nil
}

// DeleteCut 删除cut，仅创建者、项目owner或管理员
func (s *VibeService) DeleteCut(ctx context.Context, cutID, userID string, role entity.Role) error {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return err
	}
	if cut.CreatedBy != userID && project.OwnerID != userID && !role.IsAdmin() {
		return ErrForbidden
	}
	return s.cutRepo.Delete(ctx, cutID)
}

// MoveCut 把cut移动到同项目的另一个vibe。文件在存储后端搬迁，
// 数据库记录在事务里整体改写路径前缀。
func (s *VibeService) MoveCut(ctx context.Context, cutID, userID string, role entity.Role, req *MoveCutRequest) (*entity.Cut, error) {
	cut, err := s.cutRepo.FindByIDWithFiles(ctx, cutID)
	if err != nil {
		return nil, err
	}
	fromVibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	toVibe, err := s.vibeRepo.FindByID(ctx, req.ToVibeID)
	if err != nil {
		return nil, err
	}
	if toVibe.ProjectID != fromVibe.ProjectID {
		return nil, ErrInvalid
	}
	if toVibe.ID == fromVibe.ID {
		return cut, nil
	}
	if err := projectAccess(ctx, s.projectRepo, fromVibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, fromVibe.ProjectID)
	if err != nil {
		return nil, err
	}

	oldPrefix := cutStoragePrefix(project.ID, fromVibe.ID, cut.ID)
	newPrefix := cutStoragePrefix(project.ID, toVibe.ID, cut.ID)

	// 先搬存储对象，再改数据库。单个对象搬迁失败直接中止。
	for _, f := range cut.Files {
		if !strings.HasPrefix(f.StoragePath, oldPrefix) {
			continue
		}
		newPath := newPrefix + strings.TrimPrefix(f.StoragePath, oldPrefix)
		if err := s.store.Rename(ctx, f.StoragePath, newPath); err != nil {
			return nil, fmt.Errorf("move file %s: %w", f.FileName, err)
		}
	}

	seq, err := s.cutRepo.NextSequence(ctx, toVibe.ID)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}
	if err := s.cutRepo.Move(ctx, cutID, toVibe.ID, seq, oldPrefix, newPrefix); err != nil {
		return nil, fmt.Errorf("move cut: %w", err)
	}

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.CutMovedMeta{
			CutName:     cut.Name,
			FromVibe:    fromVibe.Name,
			ToVibe:      toVibe.Name,
			ProjectName: project.Name,
		},
		fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s", project.ID, toVibe.ID, cut.ID))

	return s.cutRepo.FindByIDWithFiles(ctx, cutID)
}

// UpdateLyrics 更新cut歌词
func (s *VibeService) UpdateLyrics(ctx context.Context, cutID, userID string, role entity.Role, req *UpdateLyricsRequest) (*entity.Cut, error) {
	cut, err := s.cutRepo.FindByID(ctx, cutID)
	if err != nil {
		return nil, err
	}
	vibe, err := s.vibeRepo.FindByID(ctx, cut.VibeID)
	if err != nil {
		return nil, err
	}
	if err := projectAccess(ctx, s.projectRepo, vibe.ProjectID, userID, role); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, vibe.ProjectID)
	if err != nil {
		return nil, err
	}

	cut.Lyrics = req.Lyrics
	if err := s.cutRepo.Update(ctx, cut); err != nil {
		return nil, fmt.Errorf("update lyrics: %w", err)
	}

	s.activitySvc.Record(ctx, userID, project.ID,
		entity.LyricsUpdatedMeta{CutName: cut.Name, ProjectName: project.Name},
		fmt.Sprintf("/projects/%s/vibes/%s/cuts/%s", project.ID, vibe.ID, cut.ID))

	return cut, nil
}
