package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job, such as parsing a shader or material config.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
	/**
	 * @brief CPU side preparation of data that is later uploaded to the GPU on the
	 * main thread, such as evaluating a skeleton pose.
	 */
	JOB_TYPE_GPU_RESOURCE JobType = 0x08
)

/**
 * @brief Determines which job queue a job uses.
 */
type JobPriority int

const (
	JOB_PRIORITY_LOW JobPriority = iota
	JOB_PRIORITY_NORMAL
	JOB_PRIORITY_HIGH
)

/** @brief Entry point of a job. The returned value is handed to OnComplete. */
type JobStart func(params interface{}) (interface{}, error)

/** @brief Invoked with the result of a successful job. */
type JobOnComplete func(result interface{})

/** @brief Invoked with the error of a failed job. */
type JobOnFailure func(err error)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief The type of job. */
	JobType JobType
	/** @brief The priority of this job. */
	Priority JobPriority
	/** @brief Data passed to the entry point upon execution. */
	InputParams interface{}
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when the job successfully completes. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when the job fails. Optional. */
	OnFailure JobOnFailure
	/** @brief Invoked after OnComplete or OnFailure, whatever the outcome. Optional. */
	OnCompletionCallback func()
}
