package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"kaziflow/internal/billing"
	"kaziflow/internal/catalog"
	"kaziflow/internal/domain"
	"kaziflow/internal/engine"
	"kaziflow/internal/engine/entitlement"
)

func registerAuth(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		s, token, err := cfg.Sessions.Login(ctx, input.Body.Email, input.Body.Name, input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		// Clients land on a stage they are allowed to see.
		if s.User.Role == domain.RoleClient && !catalog.ClientVisible(cfg.Engine.ActiveStage()) {
			_ = cfg.Engine.SetActiveStage(domain.RoleClient, catalog.ClientStageIDs()[0])
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: token, User: s.User, ExpiresAt: s.ExpiresAt}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Log out",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		s, ok := sessionFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		if err := cfg.Sessions.Logout(ctx, s.TokenID, s.User.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: user}, nil
	})
}

func registerStages(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/stages",
		Summary:     "List workflow stages",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []StageSummary `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		active := e.ActiveStage()
		var out []StageSummary
		for _, s := range catalog.VisibleStages(user.Role) {
			out = append(out, StageSummary{
				ID:       s.ID,
				Title:    s.Title,
				Icon:     s.Icon,
				Complete: e.IsStageComplete(s.ID),
				Active:   s.ID == active,
			})
		}
		return &struct {
			Body []StageSummary `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stages/{id}",
		Summary:     "Stage detail",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body StageDetail `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		stage, ok := catalog.Get(input.ID)
		if !ok {
			return nil, handleError(engine.ErrUnknownStage)
		}
		if user.Role == domain.RoleClient && !catalog.ClientVisible(stage.ID) {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "stage not visible to clients", nil)
		}
		number, total := e.StageNumber(user.Role, stage.ID)
		_, hasNote := e.Note(stage.ID)
		return &struct {
			Body StageDetail `json:"body"`
		}{Body: StageDetail{
			WorkflowStage: stage,
			Complete:      e.IsStageComplete(stage.ID),
			Number:        number,
			Total:         total,
			HasNote:       hasNote,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-stage",
		Method:      http.MethodPost,
		Path:        "/stages/{id}/complete",
		Summary:     "Toggle stage completion",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body struct {
			StageID  string `json:"stage_id"`
			Complete bool   `json:"complete"`
			Progress int    `json:"progress"`
		} `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		complete, err := e.ToggleStageComplete(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				StageID  string `json:"stage_id"`
				Complete bool   `json:"complete"`
				Progress int    `json:"progress"`
			} `json:"body"`
		}{}
		resp.Body.StageID = input.ID
		resp.Body.Complete = complete
		resp.Body.Progress = e.Progress()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage-note",
		Method:      http.MethodGet,
		Path:        "/stages/{id}/note",
		Summary:     "Read a stage note",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body NoteResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if user.Role != domain.RoleDesigner {
			return nil, handleError(engine.RoleError{Role: user.Role, Action: "read stage notes"})
		}
		if catalog.Index(input.ID) < 0 {
			return nil, handleError(engine.ErrUnknownStage)
		}
		if err := noteGateErr(e); err != nil {
			return nil, handleError(err)
		}
		body, _ := e.Note(input.ID)
		return &struct {
			Body NoteResponse `json:"body"`
		}{Body: NoteResponse{StageID: input.ID, Body: body}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-stage-note",
		Method:      http.MethodPut,
		Path:        "/stages/{id}/note",
		Summary:     "Save a stage note",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body SaveNoteRequest `json:"body"`
	}) (*struct {
		Body NoteResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := noteGateErr(e); err != nil {
			return nil, handleError(err)
		}
		if err := e.SetStageNote(ctx, user, input.ID, input.Body.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NoteResponse `json:"body"`
		}{Body: NoteResponse{StageID: input.ID, Body: input.Body.Body}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-active-stage",
		Method:      http.MethodPut,
		Path:        "/stages/active",
		Summary:     "Set the focused stage",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body SetActiveStageRequest `json:"body"`
	}) (*struct {
		Body struct {
			ActiveStage string `json:"active_stage"`
		} `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetActiveStage(user.Role, input.Body.StageID); err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				ActiveStage string `json:"active_stage"`
			} `json:"body"`
		}{}
		resp.Body.ActiveStage = e.ActiveStage()
		return resp, nil
	})
}

func noteGateErr(e *engine.Engine) error {
	gate := e.Gate()
	if !gate.CanUsePrivateNotes() {
		return entitlement.DeniedError{Feature: "private_notes", Tier: gate.Tier}
	}
	return nil
}

func registerProject(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/project",
		Summary:     "Live project state",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.ProjectState `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body engine.ProjectState `json:"body"`
		}{Body: e.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/project",
		Summary:     "Update project details",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body SaveDetailsRequest `json:"body"`
	}) (*struct {
		Body domain.ProjectDetails `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		details := domain.ProjectDetails{
			Name:     input.Body.Name,
			Client:   input.Body.Client,
			Location: input.Body.Location,
			Status:   input.Body.Status,
		}
		if err := e.SaveProjectDetails(ctx, user, details); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectDetails `json:"body"`
		}{Body: details}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "new-project",
		Method:        http.MethodPost,
		Path:          "/project/new",
		Summary:       "Start a new project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.ProjectState `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		state, err := e.StartNewProject(ctx, user)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectState `json:"body"`
		}{Body: state}, nil
	})
}

func registerGallery(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-photos",
		Method:      http.MethodGet,
		Path:        "/photos",
		Summary:     "Project gallery",
	}, func(ctx context.Context, input *struct {
		Tag string `query:"tag"`
	}) (*struct {
		Body []domain.ProjectPhoto `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		photos := e.State().Photos
		if input.Tag != "" && input.Tag != "All" {
			var filtered []domain.ProjectPhoto
			for _, p := range photos {
				if p.Tag == input.Tag {
					filtered = append(filtered, p)
				}
			}
			photos = filtered
		}
		return &struct {
			Body []domain.ProjectPhoto `json:"body"`
		}{Body: photos}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-photo",
		Method:        http.MethodPost,
		Path:          "/photos",
		Summary:       "Add a gallery photo",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body AddPhotoRequest `json:"body"`
	}) (*struct {
		Body domain.ProjectPhoto `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		photo, err := e.AddPhoto(ctx, user, input.Body.URL, input.Body.Description, input.Body.Tag)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectPhoto `json:"body"`
		}{Body: photo}, nil
	})
}

func registerSuppliers(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-suppliers",
		Method:      http.MethodGet,
		Path:        "/suppliers",
		Summary:     "Supplier directory",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SupplierDirectory `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body SupplierDirectory `json:"body"`
		}{Body: SupplierDirectory{
			Items:             e.State().Suppliers,
			Locations:         catalog.Locations(),
			ProductCategories: catalog.ProductCategories(),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-supplier",
		Method:        http.MethodPost,
		Path:          "/suppliers",
		Summary:       "Add a supplier",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body AddSupplierRequest `json:"body"`
	}) (*struct {
		Body domain.Supplier `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		supplier, err := e.AddSupplier(ctx, user, domain.Supplier{
			Name:     input.Body.Name,
			Contact:  input.Body.Contact,
			Products: input.Body.Products,
			Rating:   input.Body.Rating,
			Location: input.Body.Location,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Supplier `json:"body"`
		}{Body: supplier}, nil
	})
}

func registerMaterials(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-materials",
		Method:      http.MethodGet,
		Path:        "/materials",
		Summary:     "Materials and finishes guide",
	}, func(ctx context.Context, input *struct {
		Search   string `query:"search"`
		Category string `query:"category"`
	}) (*struct {
		Body struct {
			Items      []domain.MaterialItem `json:"items"`
			Categories []string              `json:"categories"`
		} `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		resp := &struct {
			Body struct {
				Items      []domain.MaterialItem `json:"items"`
				Categories []string              `json:"categories"`
			} `json:"body"`
		}{}
		resp.Body.Items = catalog.Materials(input.Search, input.Category)
		resp.Body.Categories = catalog.MaterialCategories()
		return resp, nil
	})
}

func registerPortfolio(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-archives",
		Method:      http.MethodGet,
		Path:        "/portfolio",
		Summary:     "List archived projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ProjectArchive `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Archives(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ProjectArchive `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "archive-project",
		Method:        http.MethodPost,
		Path:          "/portfolio",
		Summary:       "Archive the live project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.ProjectArchive `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.ArchiveProject(ctx, user)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectArchive `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-archive",
		Method:      http.MethodGet,
		Path:        "/portfolio/{id}",
		Summary:     "Archived project detail",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ProjectArchive `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		a, err := e.Repo.GetArchive(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectArchive `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-archive",
		Method:      http.MethodPost,
		Path:        "/portfolio/{id}/load",
		Summary:     "Load an archive into the live project",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.ProjectState `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		state, err := e.LoadProject(ctx, user, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProjectState `json:"body"`
		}{Body: state}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-archive",
		Method:      http.MethodDelete,
		Path:        "/portfolio/{id}",
		Summary:     "Delete an archive",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteArchive(ctx, user, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSubscription(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "get-subscription",
		Method:      http.MethodGet,
		Path:        "/subscription",
		Summary:     "Current subscription",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.CompanySubscription `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body domain.CompanySubscription `json:"body"`
		}{Body: e.Subscription()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/subscription/plans",
		Summary:     "Available plans",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []PlanResponse `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		var out []PlanResponse
		for _, p := range e.Config.Billing.Plans {
			out = append(out, planResponse(p))
		}
		return &struct {
			Body []PlanResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upgrade-subscription",
		Method:      http.MethodPost,
		Path:        "/subscription/upgrade",
		Summary:     "Upgrade via simulated checkout",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body UpgradeRequest `json:"body"`
	}) (*struct {
		Body struct {
			Subscription domain.CompanySubscription `json:"subscription"`
			Receipt      billing.Receipt            `json:"receipt"`
		} `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plan, ok := e.Config.Plan(string(input.Body.Tier))
		if !ok {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown plan tier", nil)
		}
		ref, err := cfg.Billing.Initiate(ctx, billing.Request{
			Tier:   input.Body.Tier,
			Method: input.Body.Method,
			Phone:  input.Body.Phone,
			Amount: plan.PriceKES,
		})
		if err != nil {
			return nil, handleError(err)
		}
		receipt, err := cfg.Billing.Await(ctx, ref)
		if err != nil {
			return nil, handleError(err)
		}
		sub, err := e.UpgradeSubscription(ctx, user, input.Body.Tier)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Subscription domain.CompanySubscription `json:"subscription"`
				Receipt      billing.Receipt            `json:"receipt"`
			} `json:"body"`
		}{}
		resp.Body.Subscription = sub
		resp.Body.Receipt = receipt
		return resp, nil
	})
}

func registerAdvisor(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "stage-advice",
		Method:      http.MethodPost,
		Path:        "/advice",
		Summary:     "Ask the AI consultant",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body AdviceRequest `json:"body"`
	}) (*struct {
		Body AdviceResponse `json:"body"`
	}, error) {
		if _, authErr := userFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		stage, ok := catalog.Get(input.Body.StageID)
		if !ok {
			return nil, handleError(engine.ErrUnknownStage)
		}
		if input.Body.Question == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "question is required", nil)
		}
		text := cfg.Advisor.Advice(ctx, stage.Title, input.Body.Question)
		return &struct {
			Body AdviceResponse `json:"body"`
		}{Body: AdviceResponse{Text: text}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-proposal",
		Method:      http.MethodPost,
		Path:        "/proposal",
		Summary:     "Draft a project proposal",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body AdviceResponse `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if user.Role != domain.RoleDesigner {
			return nil, handleError(engine.RoleError{Role: user.Role, Action: "generate proposals"})
		}
		if err := e.Gate().CheckProposal(e.CompletedCount()); err != nil {
			return nil, handleError(err)
		}
		text := cfg.Advisor.Proposal(ctx, e.State().Details)
		return &struct {
			Body AdviceResponse `json:"body"`
		}{Body: AdviceResponse{Text: text}}, nil
	})
}

func registerEvents(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit log tail",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"50"`
		After      int64  `query:"after" doc:"Return events with ids greater than this cursor, oldest first"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		user, authErr := userFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if user.Role != domain.RoleDesigner {
			return nil, handleError(engine.RoleError{Role: user.Role, Action: "read the audit log"})
		}
		var items []domain.Event
		var err error
		if input.After > 0 {
			items, err = e.Repo.EventsAfter(ctx, input.Limit, input.After)
		} else {
			items, err = e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
